// Copyright 2026 The Lealta Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Config holds metrics configuration.
type Config struct {
	Enabled bool
}

// Meter wraps the OpenTelemetry meter.
type Meter struct {
	meter metric.Meter
}

// New creates a meter. When disabled the instruments are no-ops.
func New(cfg Config, serviceName string) *Meter {
	if !cfg.Enabled {
		return &Meter{meter: otel.Meter("noop")}
	}
	return &Meter{meter: otel.Meter(serviceName)}
}

// Gateway holds the dispatcher's decision instruments.
type Gateway struct {
	RateLimited  metric.Int64Counter
	Redirects    metric.Int64Counter
	Rewrites     metric.Int64Counter
	Denials      metric.Int64Counter
	Passthroughs metric.Int64Counter
}

// NewGateway creates the gateway decision counters.
func NewGateway(m *Meter) (*Gateway, error) {
	g := &Gateway{}
	var err error

	if g.RateLimited, err = m.counter("gateway_rate_limited_total", "Requests rejected by the rate limiter"); err != nil {
		return nil, err
	}
	if g.Redirects, err = m.counter("gateway_redirects_total", "Requests answered with a redirect"); err != nil {
		return nil, err
	}
	if g.Rewrites, err = m.counter("gateway_rewrites_total", "Requests rewritten into a tenant context"); err != nil {
		return nil, err
	}
	if g.Denials, err = m.counter("gateway_denials_total", "Requests denied with a structured error"); err != nil {
		return nil, err
	}
	if g.Passthroughs, err = m.counter("gateway_passthroughs_total", "Requests forwarded untouched"); err != nil {
		return nil, err
	}
	return g, nil
}

func (m *Meter) counter(name, description string) (metric.Int64Counter, error) {
	counter, err := m.meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		return nil, fmt.Errorf("create counter %s: %w", name, err)
	}
	return counter, nil
}
