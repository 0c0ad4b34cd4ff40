package topic

import (
	"strconv"

	"github.com/nerrad567/gray-logic-iot/internal/iot"
	"github.com/nerrad567/gray-logic-iot/internal/iot/diag"
)

// maxStatusDigits bounds the decimal rendering of a Status.
const maxStatusDigits = 20

// Render writes the topic of the given kind into dst and returns the number
// of bytes written.
//
// Missing required fields, an unknown kind, a nil f or an empty dst are
// precondition violations reported through d. If the topic is longer than
// len(dst), Render returns iot.ErrInsufficientBufferSize and leaves dst
// untouched. Bytes of dst past the returned length are never written.
func Render(d *diag.Diagnostics, kind Kind, f *Fields, dst []byte) (int, error) {
	spec, ok := lookup(kind)
	if !ok {
		return 0, d.Violate("topic.Render", "unknown topic kind")
	}
	if f == nil {
		return 0, d.Violate(spec.Name, "fields are nil")
	}
	for _, req := range spec.Requires {
		if !present(f, req) {
			return 0, d.Violate(spec.Name, req.String()+" is empty")
		}
	}
	if len(dst) == 0 {
		return 0, d.Violate(spec.Name, "destination buffer is empty")
	}

	if spec.length(f) > len(dst) {
		return 0, iot.ErrInsufficientBufferSize
	}

	var scratch [maxStatusDigits]byte
	n := 0
	for _, seg := range spec.Segments {
		if seg.When != FieldNone && !present(f, seg.When) {
			continue
		}
		n += copy(dst[n:], seg.Literal)
		n += copy(dst[n:], value(f, seg.Field, &scratch))
	}
	return n, nil
}

// Len returns the exact number of bytes Render would write for kind, or zero
// for an unknown kind.
func Len(kind Kind, f *Fields) int {
	spec, ok := lookup(kind)
	if !ok || f == nil {
		return 0
	}
	return spec.length(f)
}

func (s Spec) length(f *Fields) int {
	var scratch [maxStatusDigits]byte
	n := 0
	for _, seg := range s.Segments {
		if seg.When != FieldNone && !present(f, seg.When) {
			continue
		}
		n += len(seg.Literal) + len(value(f, seg.Field, &scratch))
	}
	return n
}

func present(f *Fields, field Field) bool {
	if field == FieldStatus {
		return f.Status > 0
	}
	var scratch [maxStatusDigits]byte
	return len(value(f, field, &scratch)) > 0
}

// value returns the bytes substituted for field. Status is rendered into
// scratch.
func value(f *Fields, field Field, scratch *[maxStatusDigits]byte) []byte {
	switch field {
	case FieldHostname:
		return f.Hostname
	case FieldDeviceID:
		return f.DeviceID
	case FieldModuleID:
		return f.ModuleID
	case FieldRequestID:
		return f.RequestID
	case FieldVersion:
		return f.Version
	case FieldOperationID:
		return f.OperationID
	case FieldIDScope:
		return f.IDScope
	case FieldRegistrationID:
		return f.RegistrationID
	case FieldUserAgent:
		return f.UserAgent
	case FieldStatus:
		return strconv.AppendInt(scratch[:0], int64(f.Status), 10)
	default:
		return nil
	}
}
