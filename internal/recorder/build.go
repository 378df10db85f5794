package recorder

import (
	"fmt"
	"path/filepath"

	"pywr/internal/apperror"
	"pywr/internal/network"
)

type unknownMetricSetError struct {
	output    string
	metricSet string
}

func (e *unknownMetricSetError) Error() string {
	return fmt.Sprintf("output %q references unknown metric set %q", e.output, e.metricSet)
}

func buildOne(out network.Output, ms *network.MetricSet, outputDir string) (Sink, error) {
	path := out.Path
	if outputDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(outputDir, path)
	}

	switch out.Kind {
	case network.OutputCSVLong:
		return NewCSVLongRecorder(path, out.MetricSet)
	case network.OutputCSVWide:
		return NewCSVWideRecorder(path, out.MetricSet)
	case network.OutputAggregatedScalar:
		rec := NewAggregatedScalarRecorder(out.MetricSet)
		if ms.Aggregator != nil {
			rec = rec.WithFunction(ms.Aggregator.Function, ms.Aggregator.Percentile)
		}
		return rec, nil
	case network.OutputXLSX:
		return NewXLSXRecorder(path, out.MetricSet, out.DecimalPlaces), nil
	case network.OutputHDF5:
		return nil, apperror.New(apperror.CodeBuildError, "hdf5 output is declared but not implemented; this engine exposes it as a schema-valid, interface-only sink kind").WithField("output." + out.Name)
	case network.OutputParquet:
		return nil, apperror.New(apperror.CodeBuildError, "parquet output is declared but not implemented; this engine exposes it as a schema-valid, interface-only sink kind").WithField("output." + out.Name)
	default:
		return nil, apperror.New(apperror.CodeBuildError, fmt.Sprintf("output %q has unknown kind %v", out.Name, out.Kind))
	}
}
