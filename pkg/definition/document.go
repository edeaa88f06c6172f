package definition

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/openground/records/pkg/conversion"
	"github.com/openground/records/pkg/limits"
	"github.com/openground/records/pkg/packet"
	"github.com/openground/records/pkg/structure"
)

var (
	// ErrInvalidDocument is returned for documents that cannot describe
	// packets, such as a missing name.
	ErrInvalidDocument = errors.New("invalid definition document")

	// ErrUnsupportedConversion is returned for conversion kinds without a
	// declarative form.
	ErrUnsupportedConversion = errors.New("unsupported conversion")
)

// Conversion kinds.
const (
	KindPolynomial          = "polynomial"
	KindSegmentedPolynomial = "segmented_polynomial"
	KindIdentity            = "identity"
	KindUnixTime            = "unix_time"
)

// Document describes the command and telemetry packets of one target.
type Document struct {
	Target     string      `yaml:"target" cbor:"1,keyasint"`
	Endianness string      `yaml:"endianness,omitempty" cbor:"2,keyasint,omitempty"` // default BIG_ENDIAN
	Commands   []PacketDef `yaml:"commands,omitempty" cbor:"3,keyasint,omitempty"`
	Telemetry  []PacketDef `yaml:"telemetry,omitempty" cbor:"4,keyasint,omitempty"`
}

// PacketDef describes one packet.
type PacketDef struct {
	Name                 string      `yaml:"name" cbor:"1,keyasint"`
	Description          string      `yaml:"description,omitempty" cbor:"2,keyasint,omitempty"`
	Endianness           string      `yaml:"endianness,omitempty" cbor:"3,keyasint,omitempty"`
	AcceptShortBuffer    bool        `yaml:"accept_short_buffer,omitempty" cbor:"4,keyasint,omitempty"`
	Hazardous            bool        `yaml:"hazardous,omitempty" cbor:"5,keyasint,omitempty"`
	HazardousDescription string      `yaml:"hazardous_description,omitempty" cbor:"6,keyasint,omitempty"`
	Hidden               bool        `yaml:"hidden,omitempty" cbor:"7,keyasint,omitempty"`
	Disabled             bool        `yaml:"disabled,omitempty" cbor:"8,keyasint,omitempty"`
	Virtual              bool        `yaml:"virtual,omitempty" cbor:"9,keyasint,omitempty"`
	MessagesDisabled     bool        `yaml:"messages_disabled,omitempty" cbor:"10,keyasint,omitempty"`
	Response             *packet.Ref `yaml:"response,omitempty" cbor:"11,keyasint,omitempty"`
	ErrorResponse        *packet.Ref `yaml:"error_response,omitempty" cbor:"12,keyasint,omitempty"`
	Items                []ItemDef   `yaml:"items" cbor:"13,keyasint"`
}

// ItemDef describes one item. Without BitOffset the item is appended after
// the items before it. Type is a data type name such as UINT or DERIVED;
// ArraySize is in bits.
type ItemDef struct {
	Name       string                     `yaml:"name" cbor:"1,keyasint"`
	BitOffset  *int                       `yaml:"bit_offset,omitempty" cbor:"2,keyasint,omitempty"`
	BitSize    int                        `yaml:"bit_size" cbor:"3,keyasint"`
	Type       string                     `yaml:"type" cbor:"4,keyasint"`
	ArraySize  *int                       `yaml:"array_size,omitempty" cbor:"5,keyasint,omitempty"`
	Endianness string                     `yaml:"endianness,omitempty" cbor:"6,keyasint,omitempty"`
	Overflow   string                     `yaml:"overflow,omitempty" cbor:"7,keyasint,omitempty"`
	Variable   *structure.VariableBitSize `yaml:"variable,omitempty" cbor:"8,keyasint,omitempty"`

	ID               any        `yaml:"id,omitempty" cbor:"9,keyasint,omitempty"`
	Description      string     `yaml:"description,omitempty" cbor:"10,keyasint,omitempty"`
	Format           string     `yaml:"format,omitempty" cbor:"11,keyasint,omitempty"`
	Units            string     `yaml:"units,omitempty" cbor:"12,keyasint,omitempty"`
	UnitsFull        string     `yaml:"units_full,omitempty" cbor:"13,keyasint,omitempty"`
	Default          any        `yaml:"default,omitempty" cbor:"14,keyasint,omitempty"`
	Minimum          any        `yaml:"minimum,omitempty" cbor:"15,keyasint,omitempty"`
	Maximum          any        `yaml:"maximum,omitempty" cbor:"16,keyasint,omitempty"`
	Required         bool       `yaml:"required,omitempty" cbor:"17,keyasint,omitempty"`
	Obfuscate        bool       `yaml:"obfuscate,omitempty" cbor:"18,keyasint,omitempty"`
	MessagesDisabled bool       `yaml:"messages_disabled,omitempty" cbor:"19,keyasint,omitempty"`
	States           []StateDef `yaml:"states,omitempty" cbor:"20,keyasint,omitempty"`
	Limits           *LimitsDef `yaml:"limits,omitempty" cbor:"21,keyasint,omitempty"`

	ReadConversion  *ConversionDef `yaml:"read_conversion,omitempty" cbor:"22,keyasint,omitempty"`
	WriteConversion *ConversionDef `yaml:"write_conversion,omitempty" cbor:"23,keyasint,omitempty"`
}

// StateDef is a named value of an item.
type StateDef struct {
	Name                 string `yaml:"name" cbor:"1,keyasint"`
	Value                any    `yaml:"value" cbor:"2,keyasint"`
	Color                string `yaml:"color,omitempty" cbor:"3,keyasint,omitempty"` // GREEN, YELLOW or RED
	Hazardous            bool   `yaml:"hazardous,omitempty" cbor:"4,keyasint,omitempty"`
	HazardousDescription string `yaml:"hazardous_description,omitempty" cbor:"5,keyasint,omitempty"`
}

// LimitsDef holds the limits sets of an item keyed by set name. A DEFAULT
// set is required.
type LimitsDef struct {
	Persistence int                          `yaml:"persistence,omitempty" cbor:"1,keyasint,omitempty"`
	Disabled    bool                         `yaml:"disabled,omitempty" cbor:"2,keyasint,omitempty"`
	Sets        map[string]limits.Thresholds `yaml:"sets" cbor:"3,keyasint"`
}

// ConversionDef is a conversion by kind. A polynomial uses Coefficients,
// a segmented_polynomial uses Segments, identity uses Type and BitSize,
// and unix_time names its Seconds and Microseconds items.
type ConversionDef struct {
	Kind         string               `yaml:"kind" cbor:"1,keyasint"`
	Coefficients []float64            `yaml:"coefficients,omitempty" cbor:"2,keyasint,omitempty"`
	Segments     []conversion.Segment `yaml:"segments,omitempty" cbor:"3,keyasint,omitempty"`
	Type         string               `yaml:"type,omitempty" cbor:"4,keyasint,omitempty"`
	BitSize      int                  `yaml:"bit_size,omitempty" cbor:"5,keyasint,omitempty"`
	Seconds      string               `yaml:"seconds,omitempty" cbor:"6,keyasint,omitempty"`
	Microseconds string               `yaml:"microseconds,omitempty" cbor:"7,keyasint,omitempty"`
}

var (
	docEncMode cbor.EncMode
	docDecMode cbor.DecMode
)

func init() {
	var err error
	docEncMode, err = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create definition CBOR encoder mode: %v", err))
	}
	docDecMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
		IntDec:    cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create definition CBOR decoder mode: %v", err))
	}
}

// ParseYAML parses a definition document from YAML bytes.
func ParseYAML(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing definition: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DecodeYAML reads a YAML definition document from r.
func DecodeYAML(r io.Reader) (*Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing definition: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// EncodeYAML writes doc to w as YAML.
func EncodeYAML(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// ParseCBOR parses a definition document from CBOR bytes.
func ParseCBOR(data []byte) (*Document, error) {
	var doc Document
	if err := docDecMode.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing definition: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// MarshalCBOR encodes doc as deterministic CBOR.
func MarshalCBOR(doc *Document) ([]byte, error) {
	return docEncMode.Marshal(doc)
}

// Validate checks the names a document needs before it can be built.
func (d *Document) Validate() error {
	if d.Target == "" {
		return fmt.Errorf("%w: missing target", ErrInvalidDocument)
	}
	for _, group := range [][]PacketDef{d.Commands, d.Telemetry} {
		for i, pd := range group {
			if pd.Name == "" {
				return fmt.Errorf("%w: %s packet %d has no name", ErrInvalidDocument, d.Target, i)
			}
			for j, id := range pd.Items {
				if id.Name == "" {
					return fmt.Errorf("%w: %s %s item %d has no name", ErrInvalidDocument, d.Target, pd.Name, j)
				}
				if id.Type == "" {
					return fmt.Errorf("%w: %s %s %s has no type", ErrInvalidDocument, d.Target, pd.Name, id.Name)
				}
			}
		}
	}
	return nil
}
