package util

import (
	"strconv"
	"strings"
)

// ParseID 解析路径中的记录 ID，非正整数返回 false
func ParseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
