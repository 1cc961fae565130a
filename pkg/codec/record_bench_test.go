//go:build bench
// +build bench

package codec

import (
	"strings"
	"testing"
)

func BenchmarkEncode(b *testing.B) {
	benchmarks := []struct {
		name   string
		record *Record
	}{
		{name: "head", record: headRecord()},
		{name: "full", record: func() *Record {
			r := headRecord()
			pred := testOwner
			r.Predecessor = &pred
			r.Tag = &pred
			r.Title = strings.Repeat("t", TitleMaxLen)
			return r
		}()},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			buf := make([]byte, Space())
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := EncodeInto(buf, bm.record); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkDecode(b *testing.B) {
	buf, err := Encode(headRecord())
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Decode(buf); err != nil {
			b.Fatal(err)
		}
	}
}
