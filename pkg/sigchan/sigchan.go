package sigchan

// Chan 是一个非阻塞的信号 channel
// 只通知“有新事件”，不传递数据；多次 Emit 在被消费前会合并
type Chan struct {
	c chan struct{}
}

// New 创建新的信号 channel
func New(bufferSize int) *Chan {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Chan{
		c: make(chan struct{}, bufferSize),
	}
}

// Emit 发送信号（非阻塞，channel 已满时丢弃）
func (c *Chan) Emit() {
	select {
	case c.c <- struct{}{}:
	default:
	}
}

// Drain 清空未消费的信号
func (c *Chan) Drain() {
	for {
		select {
		case <-c.c:
		default:
			return
		}
	}
}

// C 返回内部的 channel（用于 select）
func (c *Chan) C() <-chan struct{} {
	return c.c
}
