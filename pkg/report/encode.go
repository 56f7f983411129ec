package report

import (
	"bufio"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/danpilch/mprof/pkg/clock"
	"github.com/danpilch/mprof/pkg/ident"
	"github.com/danpilch/mprof/pkg/sample"
	"github.com/danpilch/mprof/pkg/signature"
)

// Format selects a report encoding.
type Format string

const (
	FormatXML    Format = "xml"
	FormatTSV    Format = "tsv"
	FormatJSON   Format = "json"
	FormatPprof  Format = "pprof"
	FormatFolded Format = "folded"
)

// Formats lists every supported encoding.
var Formats = []Format{FormatXML, FormatTSV, FormatJSON, FormatPprof, FormatFolded}

// ParseFormat validates s as a report format. The empty string selects XML.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatXML, nil
	}
	f := Format(strings.ToLower(s))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown report format %q (want one of %v)", s, Formats)
}

// Encode writes rep to w in the given format.
func Encode(w io.Writer, rep *Report, format Format) error {
	switch format {
	case FormatXML, "":
		return encodeXML(w, rep)
	case FormatTSV:
		return encodeTSV(w, rep)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case FormatPprof:
		return EncodePprof(w, rep)
	case FormatFolded:
		return WriteFolded(w, rep, MetricBytes)
	}
	return fmt.Errorf("unknown report format %q", format)
}

func encodeXML(w io.Writer, rep *Report) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("cannot encode xml report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// encodeTSV writes one "name<TAB>bytes" line per merged node in first-seen order.
func encodeTSV(w io.Writer, rep *Report) error {
	bw := bufio.NewWriter(w)
	for _, n := range rep.nodes {
		fmt.Fprintf(bw, "%s\t%d\n", n.Name, n.Bytes)
	}
	return bw.Flush()
}

// RawSample is one unmerged registry entry.
type RawSample struct {
	Thread    ident.Thread        `json:"thread"`
	Name      string              `json:"name"`
	Signature signature.Signature `json:"signature"`
	Depth     int                 `json:"depth"`
	Parent    string              `json:"parent,omitempty"`
	Calls     uint64              `json:"calls"`
	TotalTime clock.Tick          `json:"total_time_us"`
	Bytes     uint64              `json:"bytes"`
	Classes   int                 `json:"classes"`
}

// Raw lists the registry's per-thread samples in arena order.
func Raw(reg *sample.Registry) []RawSample {
	out := make([]RawSample, 0, reg.Len())
	reg.Each(func(_ sample.Handle, m *sample.Method) bool {
		rs := RawSample{
			Thread:    m.Thread,
			Name:      m.Name,
			Signature: m.Signature,
			Depth:     m.Depth,
			Calls:     m.CallCount,
			TotalTime: m.TotalTime,
			Bytes:     m.AllocatedBytes,
			Classes:   m.NumAllocations(),
		}
		if p := reg.Get(m.Parent); p != nil {
			rs.Parent = p.Name
		}
		out = append(out, rs)
		return true
	})
	return out
}
