package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/openground/records/pkg/packet"
)

const (
	maxFormattedLength = 256
	obfuscatedValue    = "*****"
)

// Format renders a command as cmd("TARGET PACKET with ITEM value, ...").
// DERIVED items and the ignored names are left out.
func (c *Commands) Format(cmd *packet.Packet, ignored ...string) (string, error) {
	var params []string
	for _, it := range cmd.SortedItems() {
		if it.Virtual() || containsFold(ignored, it.Name()) {
			continue
		}
		if it.Obfuscate {
			params = append(params, it.Name()+" "+obfuscatedValue)
			continue
		}
		v, err := cmd.ReadItemValue(it, packet.Converted)
		if err != nil {
			return "", err
		}
		params = append(params, it.Name()+" "+formatParameter(v))
	}
	head := cmd.TargetName() + " " + cmd.PacketName()
	if len(params) == 0 {
		return fmt.Sprintf(`cmd("%s")`, head), nil
	}
	return fmt.Sprintf(`cmd("%s with %s")`, head, strings.Join(params, ", ")), nil
}

func containsFold(names []string, name string) bool {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

func formatParameter(v any) string {
	switch x := v.(type) {
	case string:
		if !printable(x) {
			return truncate(fmt.Sprintf("0x%X", x))
		}
		return "'" + truncate(strings.ReplaceAll(x, `"`, "'")) + "'"
	case []byte:
		return truncate(fmt.Sprintf("0x%X", x))
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = formatParameter(e)
		}
		return truncate("[" + strings.Join(parts, ", ") + "]")
	case float64:
		s := strconv.FormatFloat(x, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eIN") {
			s += ".0"
		}
		return s
	}
	return fmt.Sprint(v)
}

func printable(s string) bool {
	for _, r := range s {
		if !unicode.IsPrint(r) && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

func truncate(s string) string {
	if len(s) > maxFormattedLength {
		return s[:maxFormattedLength] + "..."
	}
	return s
}
