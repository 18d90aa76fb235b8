// Package diag renders the fixed-format diagnostic lines the server writes
// to standard error: "[CLOSE] fd=… reason=…", "[BACKPRESSURE] …",
// "[ABUSE] …", "[CONTROL] …". The tag and field list vary per call site but
// the shape never does, so the line is assembled from a fasttemplate
// template instead of ad-hoc fmt.Sprintf calls scattered across the loop.
package diag

import (
	"strconv"
	"strings"

	"github.com/valyala/fasttemplate"
)

var lineTemplate = fasttemplate.New("[{{tag}}] {{fields}}", "{{", "}}")

// KV is one key=value field of a diagnostic line.
type KV struct {
	Key   string
	Value string
}

func Field(key, value string) KV { return KV{Key: key, Value: value} }

func FieldInt(key string, value int) KV {
	return KV{Key: key, Value: strconv.Itoa(value)}
}

// Line renders "[tag] k=v k=v ..." for the given fields, in order.
func Line(tag string, fields ...KV) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(f.Key)
		b.WriteByte('=')
		b.WriteString(f.Value)
	}
	return lineTemplate.ExecuteString(map[string]interface{}{
		"tag":    tag,
		"fields": b.String(),
	})
}

const (
	TagClose        = "CLOSE"
	TagBackpressure = "BACKPRESSURE"
	TagAbuse        = "ABUSE"
	TagControl      = "CONTROL"
)

// Close renders the mandatory close diagnostic: "[CLOSE] fd=<fd> reason=<reason>".
func Close(fd int, reason string) string {
	return Line(TagClose, FieldInt("fd", fd), Field("reason", reason))
}

func Backpressure(fd int, writeBufferBytes int) string {
	return Line(TagBackpressure, FieldInt("fd", fd), FieldInt("write_buffer_bytes", writeBufferBytes))
}

func Abuse(fd int, reason string) string {
	return Line(TagAbuse, FieldInt("fd", fd), Field("reason", reason))
}

func Control(reason string) string {
	return Line(TagControl, Field("reason", reason))
}
