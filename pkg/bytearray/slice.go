package bytearray

import (
	"fmt"
	"math"
)

// Bounds 解析后的切片边界
// Step>0 时遍历 [Start, Stop)，Step<0 时从Start向下遍历到Stop（不含），Stop可能为-1
type Bounds struct {
	Start int
	Stop  int
	Step  int
}

// Len 返回切片结果的长度
func (b Bounds) Len() int {
	if b.Step > 0 {
		if b.Stop > b.Start {
			return (b.Stop-b.Start-1)/b.Step + 1
		}
		return 0
	}
	if b.Start > b.Stop {
		return (b.Start-b.Stop-1)/(-b.Step) + 1
	}
	return 0
}

// Int 返回n的指针，方便构造切片参数
func Int(n int) *int {
	return &n
}

// ResolveIndex 将可能为负的索引转换为 [0, length) 内的位置
//
// 传入参数:
//   - index: 原始索引
//   - length: 序列长度
//
// 返回值:
//   - int: 实际位置
//   - error: 超出 [-length, length-1] 时返回 ErrIndexOutOfRange
func ResolveIndex(index, length int) (int, error) {
	if index < -length || index >= length {
		return 0, fmt.Errorf("%w: %d not in [%d, %d]", ErrIndexOutOfRange, index, -length, length-1)
	}
	if index < 0 {
		index += length
	}
	return index, nil
}

// ResolveSlice 按Python切片规则解析start/stop/step，nil表示缺省
// 越界的start/stop会被截断到合法范围，只有step为0时报错
//
// 传入参数:
//   - start, stop, step: 可选的切片参数
//   - length: 序列长度
//
// 返回值:
//   - Bounds: 解析后的边界
//   - error: step为0时返回 ErrZeroStep
func ResolveSlice(start, stop, step *int, length int) (Bounds, error) {
	st := 1
	if step != nil {
		st = *step
		if st == 0 {
			return Bounds{}, ErrZeroStep
		}
		// -MinInt 溢出，与Python一样收窄到 -MaxInt
		if st < -math.MaxInt {
			st = -math.MaxInt
		}
	}

	if st > 0 {
		return Bounds{
			Start: adjustBound(start, 0, length, false),
			Stop:  adjustBound(stop, length, length, false),
			Step:  st,
		}, nil
	}
	return Bounds{
		Start: adjustBound(start, length-1, length, true),
		Stop:  adjustBound(stop, -1, length, true),
		Step:  st,
	}, nil
}

// adjustBound 解析单个边界
// 正向时结果落在 [0, length]，反向时落在 [-1, length-1]
func adjustBound(p *int, def, length int, reverse bool) int {
	if p == nil {
		return def
	}
	i := *p
	if i < 0 {
		i += length
		if i < 0 {
			if reverse {
				return -1
			}
			return 0
		}
		return i
	}
	if i >= length {
		if reverse {
			return length - 1
		}
		return length
	}
	return i
}

// Slice 按 start/stop/step 切片，返回独立的新实例
//
// 传入参数:
//   - start, stop, step: 可选参数，nil为缺省值
//
// 返回值:
//   - *ByteArray: 新实例
//   - error: step为0时返回
func (b *ByteArray) Slice(start, stop, step *int) (*ByteArray, error) {
	data := b.bytes()
	bounds, err := ResolveSlice(start, stop, step, len(data))
	if err != nil {
		return nil, err
	}

	n := bounds.Len()
	out := make([]byte, n)
	if bounds.Step == 1 {
		copy(out, data[bounds.Start:bounds.Start+n])
		return &ByteArray{data: out}, nil
	}
	for k, i := 0, bounds.Start; k < n; k, i = k+1, i+bounds.Step {
		out[k] = data[i]
	}
	return &ByteArray{data: out}, nil
}
