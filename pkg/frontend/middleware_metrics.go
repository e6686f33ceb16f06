// Copyright 2026 Boring Data, Inc.
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

package frontend

import (
	"fmt"
	"net/http"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/boringdata/boring-ui/pkg/metrics"
)

// patternRe strips the METHOD prefix from a ServeMux pattern string.
var patternRe = regexp.MustCompile(`^[^\s]*\s+`)

var inFlight atomic.Int64

// MiddlewareMetrics records the request counter, the duration histogram,
// and the in-flight gauge. The route label is the matched mux pattern, so
// cardinality stays bounded no matter what the raw path carries.
func (f *Frontend) MiddlewareMetrics(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	lrw := &LoggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
	startTime := time.Now()

	f.metrics.EmitGauge(metrics.RequestsInFlightName, float64(inFlight.Add(1)), nil)
	defer func() {
		f.metrics.EmitGauge(metrics.RequestsInFlightName, float64(inFlight.Add(-1)), nil)
	}()

	next(lrw, r)

	route := patternRe.ReplaceAllString(PatternFromContext(r.Context()), "")
	if route == "" {
		route = "unmatched"
	}
	labels := map[string]string{
		"method": r.Method,
		"route":  route,
		"status": fmt.Sprintf("%dxx", lrw.statusCode/100),
	}
	f.metrics.AddCounter(metrics.RequestsTotalName, 1, labels)
	f.metrics.ObserveHistogram(metrics.RequestDurationName, time.Since(startTime).Seconds(), labels)
}
