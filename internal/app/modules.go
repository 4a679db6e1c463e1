package app

import (
	"github.com/vk/bucketgrid/internal/metric"
	"github.com/vk/bucketgrid/internal/registry"
	"github.com/vk/bucketgrid/modules/metrics"
	"github.com/vk/bucketgrid/modules/textfeatures"
)

// coreModules is the definitive list of operation modules compiled into
// the bucketgrid binary.
var coreModules = []registry.Module{
	&textfeatures.Module{},
}

// coreMetricModules is the definitive list of metric modules.
var coreMetricModules = []metric.Module{
	&metrics.Module{},
}
