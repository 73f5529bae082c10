package spc

import (
	"fmt"
	"math"

	"micromes/pkg/contracts/domain"
)

// ControlChartStats is the result of Compute
type ControlChartStats struct {
	SubgroupSize int
	Subgroups    []domain.Subgroup
	Mean         float64
	StdDev       float64
	UCL          float64
	LCL          float64
	RCenter      float64
	Capability   domain.Capability
}

// Compute builds the X-bar/R statistics for values in their given order.
// The final subgroup may be smaller than subgroupSize.
func Compute(values []float64, subgroupSize int, limits domain.SpecLimits) ControlChartStats {
	if subgroupSize < 1 {
		subgroupSize = 1
	}

	stats := ControlChartStats{SubgroupSize: subgroupSize}
	stats.Subgroups = subgroups(values, subgroupSize)
	stats.Mean = mean(values)
	stats.StdDev = sampleStdDev(values, stats.Mean)
	stats.UCL = stats.Mean + 3*stats.StdDev
	stats.LCL = stats.Mean - 3*stats.StdDev

	if len(stats.Subgroups) > 0 {
		var total float64
		for _, sg := range stats.Subgroups {
			total += sg.Range
		}
		stats.RCenter = total / float64(len(stats.Subgroups))
	}

	stats.Capability = capability(stats.Mean, stats.StdDev, limits, len(values))
	return stats
}

func subgroups(values []float64, size int) []domain.Subgroup {
	var out []domain.Subgroup
	for start := 0; start < len(values); start += size {
		end := min(start+size, len(values))
		group := values[start:end]

		lo, hi := group[0], group[0]
		for _, v := range group[1:] {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}

		out = append(out, domain.Subgroup{
			Index: len(out) + 1,
			Size:  len(group),
			Mean:  mean(group),
			Range: hi - lo,
		})
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStdDev uses the N-1 denominator; fewer than two values yield 0
func sampleStdDev(values []float64, m float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

func capability(m, sigma float64, limits domain.SpecLimits, n int) domain.Capability {
	c := domain.Capability{Limits: limits}

	switch {
	case !limits.Configured():
		c.Status = domain.CapabilityLimitsNotConfigured
		c.Reason = "lower and upper specification limits are required"
	case n == 0:
		c.Status = domain.CapabilityNotComputable
		c.Reason = "no measurements"
	case sigma == 0:
		c.Status = domain.CapabilityNotComputable
		c.Reason = "standard deviation is zero"
	default:
		cpu := (*limits.Upper - m) / (3 * sigma)
		cpl := (m - *limits.Lower) / (3 * sigma)
		cpk := math.Min(cpu, cpl)
		c.Status = domain.CapabilityComputed
		c.CPU, c.CPL, c.CPK = &cpu, &cpl, &cpk
	}
	return c
}

func (s ControlChartStats) String() string {
	return fmt.Sprintf("mean=%g sd=%g ucl=%g lcl=%g rbar=%g subgroups=%d",
		s.Mean, s.StdDev, s.UCL, s.LCL, s.RCenter, len(s.Subgroups))
}
