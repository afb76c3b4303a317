package operator

import "github.com/cyber-boost/helix/pkg/value"

// mathOperator implements `@math.add/sub/mul/div/max/min` over a variadic
// Number argument list.
func mathOperator(member string, positional []value.Value, named map[string]value.Value, ctx *Context) (value.Value, error) {
	nums := make([]float64, len(positional))
	for i, p := range positional {
		if p.Kind() != value.KindNumber {
			return value.Null, newEvalError("E_MATH_TYPE", "@math.%s requires numeric arguments", member)
		}
		nums[i] = p.AsNumber()
	}

	switch member {
	case "add":
		sum := 0.0
		for _, n := range nums {
			sum += n
		}
		return value.Number(sum), nil
	case "sub":
		if len(nums) == 0 {
			return value.Number(0), nil
		}
		res := nums[0]
		for _, n := range nums[1:] {
			res -= n
		}
		return value.Number(res), nil
	case "mul":
		res := 1.0
		for _, n := range nums {
			res *= n
		}
		return value.Number(res), nil
	case "div":
		if len(nums) < 2 {
			return value.Null, newEvalError("E_MATH_ARGS", "@math.div requires at least two arguments")
		}
		res := nums[0]
		for _, n := range nums[1:] {
			if n == 0 {
				return value.Null, newEvalError("E_DIV_BY_ZERO", "division by zero")
			}
			res /= n
		}
		return value.Number(res), nil
	case "max":
		if len(nums) == 0 {
			return value.Null, newEvalError("E_MATH_ARGS", "@math.max requires at least one argument")
		}
		m := nums[0]
		for _, n := range nums[1:] {
			if n > m {
				m = n
			}
		}
		return value.Number(m), nil
	case "min":
		if len(nums) == 0 {
			return value.Null, newEvalError("E_MATH_ARGS", "@math.min requires at least one argument")
		}
		m := nums[0]
		for _, n := range nums[1:] {
			if n < m {
				m = n
			}
		}
		return value.Number(m), nil
	default:
		return value.Null, newEvalError("E_MATH_UNKNOWN_MEMBER", "@math has no member %q", member)
	}
}
