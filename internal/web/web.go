package web

import (
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates 解析内嵌的页面模板
func Templates() (*template.Template, error) {
	return template.New("").Funcs(Funcs()).ParseFS(templateFS, "templates/*.html")
}

func Funcs() template.FuncMap {
	return template.FuncMap{
		"pct":      Percent,
		"pctPtr":   PercentPtr,
		"contains": contains,
		"join":     strings.Join,
		"barWidth": BarWidth,
		"seq":      seq,
	}
}

// Percent 0.885 -> "88.5%"
func Percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

// PercentPtr 空值显示为 n/a
func PercentPtr(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return Percent(*v)
}

// BarWidth 柱状图宽度百分比
func BarWidth(n, max int) int {
	if max <= 0 || n <= 0 {
		return 0
	}
	w := n * 100 / max
	if w < 1 {
		w = 1
	}
	return w
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// seq 1..n，用于自信度选项
func seq(from, to int) []int {
	var out []int
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}
