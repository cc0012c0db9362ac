package timecode

// Kind identifies which CCSDS time code representation a Format decodes.
type Kind int

const (
	// CDS is the Day Segmented time code.
	CDS Kind = iota
	// CUC is the Unsegmented time code.
	CUC
)

// Format describes the field widths (and, for CUC, fine-tick scale) needed
// to decode a particular spacecraft/APID's time code.
type Format struct {
	Kind Kind

	// CDS fields.
	NumDay       int
	NumSubMillis int

	// CUC fields.
	NumCoarse int
	NumFine   int
	FineMult  float64
}

// Decode applies f to buf.
func (f Format) Decode(buf []byte) (Timecode, error) {
	switch f.Kind {
	case CDS:
		return DecodeCDS(buf, f.NumDay, f.NumSubMillis)
	case CUC:
		return DecodeCUC(buf, f.NumCoarse, f.NumFine, f.FineMult)
	default:
		return Timecode{}, errUnsupported("unknown format kind %d", f.Kind)
	}
}

// Decoder dispatches time code decoding per APID, falling back to a
// default format when an APID has no specific registration.
type Decoder struct {
	formats map[uint16]Format
	def     *Format
}

// NewDecoder returns an empty Decoder with no default format.
func NewDecoder() *Decoder {
	return &Decoder{formats: make(map[uint16]Format)}
}

// Register associates apid with format.
func (d *Decoder) Register(apid uint16, format Format) {
	d.formats[apid] = format
}

// SetDefault sets the format used for APIDs with no specific registration.
func (d *Decoder) SetDefault(format Format) {
	f := format
	d.def = &f
}

// FormatFor returns the format that would be used to decode apid, if any.
func (d *Decoder) FormatFor(apid uint16) (Format, bool) {
	if f, ok := d.formats[apid]; ok {
		return f, true
	}
	if d.def != nil {
		return *d.def, true
	}
	return Format{}, false
}

// Decode decodes buf as apid's registered (or default) time code format.
func (d *Decoder) Decode(apid uint16, buf []byte) (Timecode, error) {
	f, ok := d.FormatFor(apid)
	if !ok {
		return Timecode{}, errUnsupported("no format registered for apid %d", apid)
	}
	return f.Decode(buf)
}
