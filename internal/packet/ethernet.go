package packet

// EtherType 以太网类型枚举
// 标识以太网帧载荷的上层协议
type EtherType uint16

const (
	// EtherTypeIPv4 IPv4数据包（0x0800）
	EtherTypeIPv4 EtherType = 0x0800

	// EtherTypeARP ARP数据包（0x0806）
	EtherTypeARP EtherType = 0x0806
)

// String 返回以太网类型的字符串表示
func (t EtherType) String() string {
	switch t {
	case EtherTypeIPv4:
		return "IPv4"
	case EtherTypeARP:
		return "ARP"
	default:
		return "未知"
	}
}

const (
	// MinEthernetPayload 以太网最小载荷长度（字节）
	// 短于该长度的帧在发送前必须由发送方填充，帧本身不做填充
	MinEthernetPayload = 46

	// DefaultMTU 接口默认最大传输单元（字节）
	// 标准以太网MTU为1500字节
	DefaultMTU = 1500
)

// EthernetFrame 以太网帧
// 模拟器中网络设备之间传输的基本数据单元
// 以结构化记录的形式建模，不做字节级序列化
type EthernetFrame struct {
	// Source 源MAC地址
	Source MACAddress

	// Destination 目标MAC地址
	Destination MACAddress

	// EtherType 载荷协议类型
	EtherType EtherType

	// Payload 帧载荷
	// ARP帧携带28字节的ARP编码，IPv4帧携带结构化IPv4数据包的编码引用
	Payload []byte

	// IPv4 结构化的IPv4载荷
	// EtherType为IPv4时有效，避免对IP头做字节级编解码
	IPv4 *IPv4Packet
}

// IsBroadcast 判断是否为广播帧
func (f *EthernetFrame) IsBroadcast() bool {
	return f.Destination.IsBroadcast()
}

// IsMulticast 判断是否为组播帧
func (f *EthernetFrame) IsMulticast() bool {
	return f.Destination.IsMulticast()
}
