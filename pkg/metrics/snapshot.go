package metrics

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// SnapshotFileName is the file WriteSnapshot creates in its directory.
const SnapshotFileName = "metrics.prom"

// WriteSnapshot gathers g and writes it in the Prometheus text format to
// dir/metrics.prom, returning the file path.
func WriteSnapshot(g prometheus.Gatherer, dir string) (string, error) {
	families, err := g.Gather()
	if err != nil {
		return "", fmt.Errorf("gather metrics: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create metrics dir: %w", err)
	}

	path := filepath.Join(dir, SnapshotFileName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return "", fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, f.Close()
}
