package sitemap

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var byteUnits = map[byte]float64{
	'k': 1 << 10,
	'm': 1 << 20,
	'g': 1 << 30,
}

// parseBytes reads sizes such as "512", "50mb" or "1.5 g". Units are binary
// and the trailing "b" is optional.
func parseBytes(s string) (int64, error) {
	num := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "b")
	num = strings.TrimSpace(num)
	if num == "" {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	mult := 1.0
	if m, ok := byteUnits[num[len(num)-1]]; ok {
		mult = m
		num = strings.TrimSpace(num[:len(num)-1])
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	n := v * mult
	switch {
	case math.IsNaN(n), n < 0:
		return 0, fmt.Errorf("invalid size %q", s)
	case n >= math.MaxInt64:
		return 0, fmt.Errorf("size %q overflows int64", s)
	}
	return int64(n), nil
}

func formatBytes(b uint64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	if b < kb {
		return fmt.Sprintf("%db", b)
	}
	if b < mb {
		return trimFloat(fmt.Sprintf("%.1f", float64(b)/kb)) + "kb"
	}
	if b < gb {
		return trimFloat(fmt.Sprintf("%.1f", float64(b)/mb)) + "mb"
	}
	return trimFloat(fmt.Sprintf("%.1f", float64(b)/gb)) + "gb"
}

func trimFloat(s string) string {
	return strings.TrimSuffix(strings.TrimSpace(s), ".0")
}
