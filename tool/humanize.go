package tool

import (
	"math"
	"strconv"
)

var byteUnits = []string{"Bytes", "KB", "MB", "GB", "TB", "PB"}

// HumanizeBytes renders a byte count with binary (1024-based) unit steps and
// at most two decimals, e.g. 1536 -> "1.5 KB". Zero is special-cased to
// "0 Byte". Pure and deterministic; used for display-oriented speed strings.
func HumanizeBytes(n float64) string {
	if n == 0 {
		return "0 Byte"
	}
	v := n
	i := 0
	for v >= 1024 && i < len(byteUnits)-1 {
		v /= 1024
		i++
	}
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + byteUnits[i]
}
