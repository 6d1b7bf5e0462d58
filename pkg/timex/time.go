// Package timex wraps time.Time for JSON and database columns
// Package timex 封装 time.Time，用于 JSON 输出与数据库字段
package timex

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Layout output layout for JSON
// Layout JSON 输出格式
const Layout = "2006-01-02 15:04:05"

// Time time type with unified JSON formatting
// Time 统一 JSON 格式的时间类型
type Time time.Time

// Now returns the current time
// Now 返回当前时间
func Now() Time {
	return Time(time.Now())
}

// MarshalJSON implements json.Marshaler
func (t Time) MarshalJSON() ([]byte, error) {
	tt := time.Time(t)
	if tt.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(fmt.Sprintf("\"%s\"", tt.Format(Layout))), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Time) UnmarshalJSON(data []byte) error {
	if string(data) == `""` || string(data) == "null" {
		*t = Time(time.Time{})
		return nil
	}
	parsed, err := time.ParseInLocation(`"`+Layout+`"`, string(data), time.Local)
	if err != nil {
		return err
	}
	*t = Time(parsed)
	return nil
}

// Value implements driver.Valuer
func (t Time) Value() (driver.Value, error) {
	tt := time.Time(t)
	if tt.IsZero() {
		return nil, nil
	}
	return tt, nil
}

// Scan implements sql.Scanner
func (t *Time) Scan(v interface{}) error {
	switch value := v.(type) {
	case time.Time:
		*t = Time(value)
	case nil:
		*t = Time(time.Time{})
	case string:
		parsed, err := parseStored(value)
		if err != nil {
			return err
		}
		*t = Time(parsed)
	case []byte:
		parsed, err := parseStored(string(value))
		if err != nil {
			return err
		}
		*t = Time(parsed)
	default:
		return fmt.Errorf("can not convert %v to timex.Time", v)
	}
	return nil
}

// storedLayouts layouts drivers use when a datetime column comes back as text
var storedLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	Layout,
}

func parseStored(value string) (time.Time, error) {
	var err error
	for _, layout := range storedLayouts {
		var parsed time.Time
		if parsed, err = time.ParseInLocation(layout, value, time.Local); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, err
}

// String returns formatted time
func (t Time) String() string {
	return time.Time(t).Format(Layout)
}

// Unix returns unix seconds
func (t Time) Unix() int64 {
	return time.Time(t).Unix()
}

// UnixMilli returns unix milliseconds
func (t Time) UnixMilli() int64 {
	return time.Time(t).UnixMilli()
}

// UnixMicro returns unix microseconds
func (t Time) UnixMicro() int64 {
	return time.Time(t).UnixMicro()
}

// UnixNano returns unix nanoseconds
func (t Time) UnixNano() int64 {
	return time.Time(t).UnixNano()
}
