package layer

import (
	"fmt"
	"slices"
	"strings"

	"gonum.org/v1/gonum/stat"
)

const (
	// ForegroundCut 前景/中景分界，占深度范围的比例
	ForegroundCut = 0.3
	// BackgroundCut 中景/背景分界
	BackgroundCut = 0.7
)

// Thresholds 分层策略。Names 由近到远，Cuts 为相邻分层之间的分界比例，
// 因此 len(Names) == len(Cuts)+1。增加分层只需同时追加名称和分界。
type Thresholds struct {
	Names  []string
	Cuts   []float64
	Policy Policy
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Names:  []string{Foreground, Midground, Background},
		Cuts:   []float64{ForegroundCut, BackgroundCut},
		Policy: FixedPolicy{},
	}
}

func (t Thresholds) Validate() error {
	if len(t.Names) != len(t.Cuts)+1 {
		return fmt.Errorf("%w: %d band names need %d cuts, got %d",
			ErrInvalidInput, len(t.Names), len(t.Names)-1, len(t.Cuts))
	}
	seen := make(map[string]bool, len(t.Names))
	for _, n := range t.Names {
		if n == "" || seen[n] {
			return fmt.Errorf("%w: band names must be unique and non-empty: %v", ErrInvalidInput, t.Names)
		}
		seen[n] = true
	}
	for i, c := range t.Cuts {
		if c < 0 || c > 1 {
			return fmt.Errorf("%w: cut %v outside [0,1]", ErrInvalidInput, c)
		}
		if i > 0 && c <= t.Cuts[i-1] {
			return fmt.Errorf("%w: cuts must be strictly ascending: %v", ErrInvalidInput, t.Cuts)
		}
	}
	return nil
}

func (t Thresholds) policy() Policy {
	if t.Policy == nil {
		return FixedPolicy{}
	}
	return t.Policy
}

// Policy 把分界比例换算成深度值上的分界点，结果必须单调不减
type Policy interface {
	CutPoints(values []float64, minDepth, maxDepth float64, cuts []float64) []float64
}

// FixedPolicy t = minDepth + cut * (maxDepth - minDepth)，与数据分布无关
type FixedPolicy struct{}

func (FixedPolicy) CutPoints(_ []float64, minDepth, maxDepth float64, cuts []float64) []float64 {
	span := maxDepth - minDepth
	points := make([]float64, len(cuts))
	for i, c := range cuts {
		points[i] = minDepth + c*span
	}
	return points
}

// PercentilePolicy 以深度值的经验分位数作为分界点，分层像素数大致按比例分配
type PercentilePolicy struct{}

func (PercentilePolicy) CutPoints(values []float64, minDepth, maxDepth float64, cuts []float64) []float64 {
	if len(values) == 0 {
		return FixedPolicy{}.CutPoints(values, minDepth, maxDepth, cuts)
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	points := make([]float64, len(cuts))
	for i, c := range cuts {
		points[i] = stat.Quantile(c, stat.Empirical, sorted, nil)
	}
	return points
}

// ParsePolicy fixed | percentile
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(name) {
	case "", "fixed":
		return FixedPolicy{}, nil
	case "percentile":
		return PercentilePolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown threshold policy %q", name)
	}
}
