package internaldefs

import (
	"testing"

	authflow "github.com/MrEthical07/goAuthClient"
)

func TestEveryMetricHasADefinition(t *testing.T) {
	seen := map[authflow.MetricID]string{}
	for _, def := range CounterDefs {
		if authflow.MetricIsHistogram(def.ID) {
			t.Fatalf("%s is a histogram but defined as a counter", def.Name)
		}
		if prev, dup := seen[def.ID]; dup {
			t.Fatalf("%s and %s share an id", prev, def.Name)
		}
		seen[def.ID] = def.Name
	}
	for _, def := range HistogramDefs {
		if !authflow.MetricIsHistogram(def.ID) {
			t.Fatalf("%s is a counter but defined as a histogram", def.Name)
		}
		seen[def.ID] = def.Name
	}
	if len(seen) != authflow.MetricCount {
		t.Fatalf("defined %d metrics, engine has %d", len(seen), authflow.MetricCount)
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 0, 2, 0, 0, 0, 0, 3}))
	want := [authflow.MetricBucketCount]uint64{1, 1, 3, 3, 3, 3, 3, 6}
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}
