package sqlitedb

import "strconv"

// uint64 values are stored as text since sqlite integers are signed.

func encodeUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func decodeUint(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}
