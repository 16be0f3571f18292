package packet

const (
	// IPv4Version IP协议版本号
	IPv4Version = 4

	// IPv4MinIHL IPv4头部最小长度（以4字节为单位）
	// 不带选项的标准IP头为20字节，即IHL=5
	IPv4MinIHL = 5

	// DefaultTTL 数据包默认生存时间
	// 本设备始发的数据包（如ICMP回显应答）使用该TTL
	DefaultTTL = 64

	// FlagDontFragment 不分片标志位（DF位）
	// IPv4头部Flags字段的bit 1
	FlagDontFragment = 0x02

	// ProtocolICMP ICMP协议号
	ProtocolICMP = 1

	// ProtocolTCP TCP协议号
	ProtocolTCP = 6

	// ProtocolUDP UDP协议号
	ProtocolUDP = 17
)

// IPv4Packet IPv4数据包
// 以结构化记录的形式建模IP头部和载荷
//
// 头部校验和不变式：
//   - HeaderChecksum 必须等于头部（校验和字段置零后）的反码校验和
//   - TotalLength 必须不小于 IHL*4
//
// Flags字段的bit 1为DF（Don't Fragment）位，置位时禁止分片
type IPv4Packet struct {
	// Version IP协议版本，必须为4
	Version int

	// IHL 头部长度（以4字节为单位），最小为5
	IHL int

	// TotalLength 数据包总长度（头部+载荷，字节）
	TotalLength int

	// TTL 生存时间
	// 每经过一台路由器减1，减到0时丢弃并回送ICMP超时差错
	TTL int

	// Protocol 上层协议号（ICMP=1, TCP=6, UDP=17）
	Protocol int

	// HeaderChecksum 头部校验和（反码求和）
	HeaderChecksum uint16

	// Source 源IP地址
	Source IPAddress

	// Destination 目标IP地址
	Destination IPAddress

	// Flags 标志位（bit 1为DF位）
	Flags int

	// Payload 载荷数据
	// Protocol为ICMP时以ICMP字段的结构化记录为准
	Payload []byte

	// ICMP 结构化的ICMP载荷，Protocol为ICMP时有效
	ICMP *ICMPPacket
}

// HeaderLength 返回头部长度（字节）
func (p *IPv4Packet) HeaderLength() int {
	return p.IHL * 4
}

// DontFragment 判断DF位是否置位
func (p *IPv4Packet) DontFragment() bool {
	return p.Flags&FlagDontFragment != 0
}

// headerBytes 生成用于校验和计算的头部字节序列
// 校验和字段按置零处理，选项字段按全零处理
// IHL小于5的畸形头部按20字节计算，保证地址字段落位
func (p *IPv4Packet) headerBytes() []byte {
	size := p.HeaderLength()
	if size < 20 {
		size = 20
	}
	h := make([]byte, size)

	h[0] = byte(p.Version<<4 | (p.IHL & 0x0F))
	h[2] = byte(p.TotalLength >> 8)
	h[3] = byte(p.TotalLength)
	h[6] = byte(p.Flags << 5)
	h[8] = byte(p.TTL)
	h[9] = byte(p.Protocol)
	// h[10:12] 校验和字段保持为零
	copy(h[12:16], p.Source[:])
	copy(h[16:20], p.Destination[:])

	return h
}

// ComputeChecksum 计算头部的反码校验和
// 算法（RFC 791）：
// 1. 将头部按16位字求和（校验和字段置零）
// 2. 将进位折叠回低16位
// 3. 取反码
func (p *IPv4Packet) ComputeChecksum() uint16 {
	h := p.headerBytes()

	var sum uint32
	for i := 0; i+1 < len(h); i += 2 {
		sum += uint32(h[i])<<8 | uint32(h[i+1])
	}

	// 折叠进位
	for sum > 0xFFFF {
		sum = (sum >> 16) + (sum & 0xFFFF)
	}

	return ^uint16(sum)
}

// UpdateChecksum 重新计算并写入头部校验和
// TTL递减等头部变更后必须调用
func (p *IPv4Packet) UpdateChecksum() {
	p.HeaderChecksum = p.ComputeChecksum()
}

// ChecksumValid 校验头部校验和是否正确
func (p *IPv4Packet) ChecksumValid() bool {
	return p.HeaderChecksum == p.ComputeChecksum()
}

// HeaderErrorReason 头部检查失败原因
type HeaderErrorReason int

const (
	// HeaderOK 头部检查通过
	HeaderOK HeaderErrorReason = iota

	// HeaderErrorChecksum 校验和错误
	HeaderErrorChecksum

	// HeaderErrorVersion 版本号不是4
	HeaderErrorVersion

	// HeaderErrorIHL 头部长度小于5
	HeaderErrorIHL

	// HeaderErrorLength 总长度小于头部长度
	HeaderErrorLength
)

// String 返回头部错误原因的字符串表示
func (r HeaderErrorReason) String() string {
	switch r {
	case HeaderOK:
		return "OK"
	case HeaderErrorChecksum:
		return "校验和错误"
	case HeaderErrorVersion:
		return "版本号错误"
	case HeaderErrorIHL:
		return "头部长度错误"
	case HeaderErrorLength:
		return "总长度错误"
	default:
		return "未知"
	}
}

// ValidateHeader 按RFC 1812要求做头部健全性检查
// 检查顺序：校验和 → 版本 → IHL → 总长度
// 任一项失败即返回对应原因，调用方负责丢弃并计入头部错误统计
func (p *IPv4Packet) ValidateHeader() HeaderErrorReason {
	if !p.ChecksumValid() {
		return HeaderErrorChecksum
	}
	if p.Version != IPv4Version {
		return HeaderErrorVersion
	}
	if p.IHL < IPv4MinIHL {
		return HeaderErrorIHL
	}
	if p.TotalLength < p.HeaderLength() {
		return HeaderErrorLength
	}
	return HeaderOK
}
