package benchmarks

import (
	"testing"

	"github.com/randalmurphal/eventkit/pkg/eventkit"
)

// BenchmarkResolve_Existing resolves an instance that already has an event.
func BenchmarkResolve_Existing(b *testing.B) {
	d := eventkit.Declare[Owner, int, bool]("")
	inst := &Owner{ID: 1}
	d.Resolve(inst)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = d.Resolve(inst)
	}
}

// BenchmarkResolve_New resolves a fresh instance every iteration.
func BenchmarkResolve_New(b *testing.B) {
	d := eventkit.Declare[Owner, int, bool]("")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = d.Resolve(&Owner{ID: i})
	}
}

// BenchmarkResolve_Parallel resolves a shared set of instances concurrently.
func BenchmarkResolve_Parallel(b *testing.B) {
	d := eventkit.Declare[Owner, int, bool]("")
	owners := make([]*Owner, 64)
	for i := range owners {
		owners[i] = &Owner{ID: i}
		d.Resolve(owners[i])
	}
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_ = d.Resolve(owners[i%len(owners)])
			i++
		}
	})
}
