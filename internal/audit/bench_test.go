package audit

import (
	"os"
	"path/filepath"
	"testing"
)

func benchEntry() Entry {
	return Entry{
		Kind:      KindCommandCheck,
		Router:    "r1",
		Candidate: "show version",
		Decision:  DecisionAdmit,
	}
}

func BenchmarkRecord_Single(b *testing.B) {
	path := filepath.Join(b.TempDir(), "bench.jsonl")
	l, err := Open(path)
	if err != nil {
		b.Fatal(err)
	}
	defer l.Close()

	entry := benchEntry()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.Record(entry)
	}
}

func BenchmarkRecord_Sequential100(b *testing.B) {
	entry := benchEntry()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		path := filepath.Join(b.TempDir(), "bench.jsonl")
		l, err := Open(path)
		if err != nil {
			b.Fatal(err)
		}
		for j := 0; j < 100; j++ {
			l.Record(entry)
		}
		l.Close()
	}
}

func benchVerify(b *testing.B, n int) {
	b.Helper()
	path := filepath.Join(b.TempDir(), "bench.jsonl")
	l, err := Open(path)
	if err != nil {
		b.Fatal(err)
	}
	entry := benchEntry()
	for i := 0; i < n; i++ {
		l.Record(entry)
	}
	l.Close()

	info, _ := os.Stat(path)
	b.ResetTimer()
	b.SetBytes(info.Size())

	for i := 0; i < b.N; i++ {
		result := Verify(path)
		if !result.Valid {
			b.Fatal("invalid chain:", result.Error)
		}
	}
}

func BenchmarkVerify_1000(b *testing.B) {
	benchVerify(b, 1000)
}

func BenchmarkVerify_10000(b *testing.B) {
	benchVerify(b, 10000)
}
