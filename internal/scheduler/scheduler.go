package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Timer 已调度的回调句柄
type Timer interface {
	// Cancel 取消定时器
	// 回调尚未执行时返回true；已执行或已取消时返回false
	// 排队的数据包在超时前被冲刷时必须取消其定时器，
	// 避免悬挂的回调二次触发
	Cancel() bool
}

// Scheduler 定时器调度抽象
// 转发引擎通过该接口调度ARP解析超时等延迟工作，
// 测试中注入虚拟时钟即可确定性地推进时间，无需真实等待
type Scheduler interface {
	// After 在延迟d后执行fn，返回可取消的句柄
	After(d time.Duration, fn func()) Timer

	// Now 返回调度器的当前时间
	Now() time.Time
}

// Real 基于真实时间的调度器实现
type Real struct{}

// NewReal 创建真实时间调度器
func NewReal() *Real {
	return &Real{}
}

// After 基于time.AfterFunc调度回调
func (r *Real) After(d time.Duration, fn func()) Timer {
	return &realTimer{timer: time.AfterFunc(d, fn)}
}

// Now 返回当前真实时间
func (r *Real) Now() time.Time {
	return time.Now()
}

type realTimer struct {
	timer *time.Timer
}

func (t *realTimer) Cancel() bool {
	return t.timer.Stop()
}

// Virtual 虚拟时钟调度器
// 时间只在显式调用Advance时前进，用于测试中确定性地触发超时
type Virtual struct {
	// now 虚拟当前时间
	now time.Time

	// pending 待触发的回调，按到期时间排序
	pending []*virtualTimer

	// seq 单调递增序号，同一到期时间的回调按调度顺序触发
	seq uint64

	// mu 互斥锁
	mu sync.Mutex
}

// NewVirtual 创建虚拟时钟调度器
func NewVirtual() *Virtual {
	return &Virtual{
		now: time.Unix(0, 0),
	}
}

// After 调度延迟回调
func (v *Virtual) After(d time.Duration, fn func()) Timer {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.seq++
	t := &virtualTimer{
		clock:    v,
		deadline: v.now.Add(d),
		seq:      v.seq,
		fn:       fn,
	}
	v.pending = append(v.pending, t)
	return t
}

// Now 返回虚拟当前时间
func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// Advance 把虚拟时间向前推进d，按到期顺序触发所有到期的回调
// 回调在锁外执行，允许回调中再次调度新的定时器
func (v *Virtual) Advance(d time.Duration) {
	v.mu.Lock()
	target := v.now.Add(d)
	v.mu.Unlock()

	for {
		t := v.popDue(target)
		if t == nil {
			break
		}
		t.fn()
	}

	v.mu.Lock()
	v.now = target
	v.mu.Unlock()
}

// popDue 取出target之前到期的最早回调并推进虚拟时间
func (v *Virtual) popDue(target time.Time) *virtualTimer {
	v.mu.Lock()
	defer v.mu.Unlock()

	sort.SliceStable(v.pending, func(i, j int) bool {
		if !v.pending[i].deadline.Equal(v.pending[j].deadline) {
			return v.pending[i].deadline.Before(v.pending[j].deadline)
		}
		return v.pending[i].seq < v.pending[j].seq
	})

	for i, t := range v.pending {
		if t.cancelled {
			continue
		}
		if t.deadline.After(target) {
			break
		}
		v.pending = append(v.pending[:i], v.pending[i+1:]...)
		if t.deadline.After(v.now) {
			v.now = t.deadline
		}
		t.fired = true
		return t
	}

	// 清理已取消的定时器
	kept := v.pending[:0]
	for _, t := range v.pending {
		if !t.cancelled {
			kept = append(kept, t)
		}
	}
	v.pending = kept

	return nil
}

type virtualTimer struct {
	clock     *Virtual
	deadline  time.Time
	seq       uint64
	fn        func()
	fired     bool
	cancelled bool
}

func (t *virtualTimer) Cancel() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.fired || t.cancelled {
		return false
	}
	t.cancelled = true
	return true
}
