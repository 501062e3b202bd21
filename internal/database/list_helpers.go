package database

import "time"

// Nullable parameter helpers: nil pointers become SQL NULL.

func pqInt64Ptr(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func pqDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}

func pqTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
