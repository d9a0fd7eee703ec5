package model

import (
	"strconv"
	"time"
)

type ValueKind int

const (
	ValueEmpty ValueKind = iota
	ValueString
	ValueNumber
	ValueTime
)

// Value is a single typed cell read from an uploaded sheet.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Time time.Time
}

func StringValue(s string) Value {
	if s == "" {
		return Value{}
	}
	return Value{Kind: ValueString, Str: s}
}

func NumberValue(n float64) Value {
	return Value{Kind: ValueNumber, Num: n}
}

func TimeValue(t time.Time) Value {
	return Value{Kind: ValueTime, Time: t}
}

func (v Value) IsEmpty() bool {
	return v.Kind == ValueEmpty
}

// Text renders the value the way it is shown in previews and used for width sizing.
func (v Value) Text() string {
	switch v.Kind {
	case ValueString:
		return v.Str
	case ValueNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case ValueTime:
		if v.Time.Hour() == 0 && v.Time.Minute() == 0 && v.Time.Second() == 0 {
			return v.Time.Format("2006-01-02")
		}
		return v.Time.Format("2006-01-02 15:04:05")
	default:
		return ""
	}
}

type Table struct {
	Headers []string
	Rows    [][]Value
}

func (t Table) ColumnIndex(name string) int {
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell returns the value at row/col or an empty value when the row is short.
func (t Table) Cell(row []Value, col int) Value {
	if col < 0 || col >= len(row) {
		return Value{}
	}
	return row[col]
}

// ColumnRoles names the header that supplies each role the report needs.
type ColumnRoles struct {
	Date       string `json:"date_column"`
	Technician string `json:"technician_column"`
	JobFee     string `json:"fee_column"`
}
