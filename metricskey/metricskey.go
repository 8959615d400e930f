package metricskey

import "github.com/effective-security/metrics"

// Perf
var (
	// PerfKmsOperation is perf metric
	PerfKmsOperation = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_kms",
		Help:         "perf_kms provides the sample metrics of remote KMS operations",
		RequiredTags: []string{"provider", "action"},
	}

	// PerfCsrBuild is perf metric
	PerfCsrBuild = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_csr_build",
		Help:         "perf_csr_build provides the sample metrics of CSR build operations",
		RequiredTags: []string{"provider"},
	}
)

// Metrics returns slice of metrics from this repo
var Metrics = []*metrics.Describe{
	&PerfKmsOperation,
	&PerfCsrBuild,
}
