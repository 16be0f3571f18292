package packet

// ICMPType ICMP消息类型
type ICMPType int

const (
	// ICMPTypeEchoReply 回显应答（ping应答）
	ICMPTypeEchoReply ICMPType = 0

	// ICMPTypeDestinationUnreachable 目标不可达差错
	ICMPTypeDestinationUnreachable ICMPType = 3

	// ICMPTypeEchoRequest 回显请求（ping请求）
	ICMPTypeEchoRequest ICMPType = 8

	// ICMPTypeTimeExceeded 超时差错（TTL耗尽）
	ICMPTypeTimeExceeded ICMPType = 11
)

// String 返回ICMP类型的字符串表示
func (t ICMPType) String() string {
	switch t {
	case ICMPTypeEchoReply:
		return "EchoReply"
	case ICMPTypeDestinationUnreachable:
		return "DestinationUnreachable"
	case ICMPTypeEchoRequest:
		return "EchoRequest"
	case ICMPTypeTimeExceeded:
		return "TimeExceeded"
	default:
		return "未知"
	}
}

const (
	// CodeNetUnreachable 网络不可达（目标不可达，code 0）
	CodeNetUnreachable = 0

	// CodeFragmentationNeeded 需要分片但DF置位（目标不可达，code 4）
	CodeFragmentationNeeded = 4

	// CodeTTLExceeded 传输中TTL超时（超时差错，code 0）
	CodeTTLExceeded = 0

	// ICMPErrorDataSize ICMP差错消息携带的载荷字节数
	ICMPErrorDataSize = 8

	// ICMPHeaderSize ICMP头部长度（字节）
	ICMPHeaderSize = 8
)

// ICMPPacket ICMP消息
type ICMPPacket struct {
	// Type 消息类型
	Type ICMPType

	// Code 类型内的细分代码
	Code int

	// ID 标识符，回显请求/应答中用于匹配会话
	ID int

	// Sequence 序列号，回显请求/应答中递增
	Sequence int

	// DataSize 数据部分长度（字节）
	DataSize int
}

// NewEchoRequest 构造回显请求
func NewEchoRequest(id, seq, dataSize int) *ICMPPacket {
	return &ICMPPacket{
		Type:     ICMPTypeEchoRequest,
		ID:       id,
		Sequence: seq,
		DataSize: dataSize,
	}
}

// NewEchoReply 根据回显请求构造回显应答
// ID、序列号和数据长度与请求保持一致
func NewEchoReply(request *ICMPPacket) *ICMPPacket {
	return &ICMPPacket{
		Type:     ICMPTypeEchoReply,
		ID:       request.ID,
		Sequence: request.Sequence,
		DataSize: request.DataSize,
	}
}

// Length 返回ICMP消息总长度（头部+数据，字节）
func (p *ICMPPacket) Length() int {
	return ICMPHeaderSize + p.DataSize
}
