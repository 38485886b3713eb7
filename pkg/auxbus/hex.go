package auxbus

import "fmt"

// hexDumpMax caps the number of bytes rendered by HexStr.
const hexDumpMax = 100

// HexStr renders up to the first 100 bytes of data as space-separated
// two-digit uppercase hex, for log lines.
func HexStr(data []byte) string {
	if len(data) > hexDumpMax {
		data = data[:hexDumpMax]
	}
	out := make([]byte, 0, len(data)*3)
	for i, b := range data {
		if i > 0 {
			out = append(out, ' ')
		}
		out = fmt.Appendf(out, "%02X", b)
	}
	return string(out)
}
