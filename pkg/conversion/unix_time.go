package conversion

import (
	"fmt"
	"time"

	"github.com/openground/records/pkg/structure"
)

// UnixTime combines a seconds item and an optional microseconds item into
// a time.Time in UTC. The converted value ignores the input value.
type UnixTime struct {
	SecondsItem      string
	MicrosecondsItem string
}

func (u *UnixTime) Call(_ any, src Source, _ []byte) (any, error) {
	secs, err := readFloat(src, u.SecondsItem)
	if err != nil {
		return nil, err
	}
	var usecs float64
	if u.MicrosecondsItem != "" {
		if usecs, err = readFloat(src, u.MicrosecondsItem); err != nil {
			return nil, err
		}
	}
	whole := int64(secs)
	nanos := int64((secs-float64(whole))*1e9) + int64(usecs*1e3)
	return time.Unix(whole, nanos).UTC(), nil
}

func readFloat(src Source, name string) (float64, error) {
	v, err := src.Read(name)
	if err != nil {
		return 0, err
	}
	f, err := structure.ToFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return f, nil
}

func (u *UnixTime) ConvertedType() structure.DataType { return structure.Object }
func (u *UnixTime) ConvertedBitSize() int             { return 0 }

func (u *UnixTime) String() string {
	if u.MicrosecondsItem == "" {
		return fmt.Sprintf("UnixTime(%s)", u.SecondsItem)
	}
	return fmt.Sprintf("UnixTime(%s, %s)", u.SecondsItem, u.MicrosecondsItem)
}
