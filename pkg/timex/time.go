package timex

import (
	"database/sql/driver"
	"fmt"
	"time"
)

const layout = "2006-01-02 15:04:05"

// Time is a time.Time that stores as a datetime column and renders as "2006-01-02 15:04:05"
// Time 以 datetime 列存储并以 "2006-01-02 15:04:05" 格式输出的时间
type Time time.Time

// Now 当前时间
func Now() Time {
	return Time(time.Now())
}

// Std returns the wrapped time.Time
func (t Time) Std() time.Time {
	return time.Time(t)
}

func (t Time) IsZero() bool {
	return time.Time(t).IsZero()
}

func (t Time) Unix() int64 {
	return time.Time(t).Unix()
}

func (t Time) UnixMilli() int64 {
	return time.Time(t).UnixMilli()
}

func (t Time) UnixMicro() int64 {
	return time.Time(t).UnixMicro()
}

func (t Time) UnixNano() int64 {
	return time.Time(t).UnixNano()
}

func (t Time) String() string {
	return time.Time(t).Format(layout)
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.String() + `"`), nil
}

func (t *Time) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		*t = Time{}
		return nil
	}
	parsed, err := time.ParseInLocation(`"`+layout+`"`, s, time.Local)
	if err != nil {
		parsed, err = time.Parse(`"`+time.RFC3339Nano+`"`, s)
		if err != nil {
			return err
		}
	}
	*t = Time(parsed)
	return nil
}

// Value implements driver.Valuer, the zero time is stored as NULL
func (t Time) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return time.Time(t), nil
}

// Scan implements sql.Scanner
func (t *Time) Scan(v any) error {
	switch val := v.(type) {
	case nil:
		*t = Time{}
	case time.Time:
		*t = Time(val)
	case string:
		return t.scanString(val)
	case []byte:
		return t.scanString(string(val))
	default:
		return fmt.Errorf("timex: cannot scan %T into Time", v)
	}
	return nil
}

func (t *Time) scanString(s string) error {
	for _, l := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", layout} {
		if parsed, err := time.ParseInLocation(l, s, time.Local); err == nil {
			*t = Time(parsed)
			return nil
		}
	}
	return fmt.Errorf("timex: cannot parse %q", s)
}
