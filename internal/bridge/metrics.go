/*
Copyright 2026 The alpm-bridge Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package bridge

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "alpm_bridge"

var (
	logDelivered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "log",
		Name:      "delivered_total",
		Help:      "log lines delivered to Go callbacks",
	})
	logDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "log",
		Name:      "dropped_total",
		Help:      "log lines dropped before delivery",
	}, []string{"reason"})
	logGrown = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "log",
		Name:      "buffer_grown_total",
		Help:      "log lines that needed more than the initial buffer",
	})
	questionsDelivered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "question",
		Name:      "delivered_total",
		Help:      "questions delivered to Go callbacks",
	})
	registrations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "registrations_total",
		Help:      "callback registrations by kind",
	}, []string{"kind"})
)

// RegisterMetrics registers the bridge collectors with r. Collectors that
// are already registered are not an error.
func RegisterMetrics(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		logDelivered,
		logDropped,
		logGrown,
		questionsDelivered,
		registrations,
	} {
		err := r.Register(c)
		if err == nil {
			continue
		}
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			continue
		}

		return fmt.Errorf("failed to register bridge metrics: %w", err)
	}

	return nil
}
