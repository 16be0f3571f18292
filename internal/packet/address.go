package packet

import (
	"fmt"
	"strconv"
	"strings"
)

// MACAddress 硬件地址（MAC地址）
// 6字节的以太网硬件地址，按值比较，构造后不可变
// 例如：AA:BB:CC:DD:EE:01
type MACAddress [6]byte

// BroadcastMAC 广播MAC地址
// 目标为该地址的帧会被交换机泛洪到除入端口外的所有端口
var BroadcastMAC = MACAddress{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// ZeroMAC 全零MAC地址
// 用于ARP请求中未知的目标硬件地址字段
var ZeroMAC = MACAddress{}

// ParseMAC 解析MAC地址字符串
// 支持冒号分隔的十六进制格式，例如 "AA:BB:CC:DD:EE:01"
func ParseMAC(s string) (MACAddress, error) {
	var mac MACAddress

	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return mac, fmt.Errorf("无效的MAC地址格式: %s", s)
	}

	for i, part := range parts {
		v, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return mac, fmt.Errorf("无效的MAC地址格式: %s", s)
		}
		mac[i] = byte(v)
	}

	return mac, nil
}

// MustParseMAC 解析MAC地址，解析失败时panic
// 仅用于测试和硬编码常量
func MustParseMAC(s string) MACAddress {
	mac, err := ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return mac
}

// String 返回大写冒号分隔的字符串表示
func (m MACAddress) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X",
		m[0], m[1], m[2], m[3], m[4], m[5])
}

// IsBroadcast 判断是否为广播地址（FF:FF:FF:FF:FF:FF）
func (m MACAddress) IsBroadcast() bool {
	return m == BroadcastMAC
}

// IsMulticast 判断是否为组播地址
// 以太网组播地址的第一个字节最低位为1
// IPv4组播映射的MAC地址范围为 01:00:5E:00:00:00 - 01:00:5E:7F:FF:FF
func (m MACAddress) IsMulticast() bool {
	return m[0]&0x01 == 1 && !m.IsBroadcast()
}

// IPAddress IPv4地址
// 4字节的网络层地址，按值比较，构造后不可变
type IPAddress [4]byte

// ParseIPv4 解析点分十进制的IPv4地址字符串
// 例如："192.168.1.1"
func ParseIPv4(s string) (IPAddress, error) {
	var ip IPAddress

	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return ip, fmt.Errorf("无效的IPv4地址格式: %s", s)
	}

	for i, part := range parts {
		v, err := strconv.ParseUint(part, 10, 8)
		if err != nil {
			return ip, fmt.Errorf("无效的IPv4地址格式: %s", s)
		}
		ip[i] = byte(v)
	}

	return ip, nil
}

// MustParseIPv4 解析IPv4地址，解析失败时panic
// 仅用于测试和硬编码常量
func MustParseIPv4(s string) IPAddress {
	ip, err := ParseIPv4(s)
	if err != nil {
		panic(err)
	}
	return ip
}

// String 返回点分十进制字符串表示
func (ip IPAddress) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", ip[0], ip[1], ip[2], ip[3])
}

// IsZero 判断是否为全零地址（0.0.0.0）
func (ip IPAddress) IsZero() bool {
	return ip == IPAddress{}
}

// SubnetMask 子网掩码
// 4字节的掩码，用于划分网络号和主机号
// 例如：255.255.255.0 对应 /24 前缀
type SubnetMask [4]byte

// ParseMask 解析点分十进制的子网掩码字符串
func ParseMask(s string) (SubnetMask, error) {
	ip, err := ParseIPv4(s)
	if err != nil {
		return SubnetMask{}, fmt.Errorf("无效的子网掩码格式: %s", s)
	}
	return SubnetMask(ip), nil
}

// MustParseMask 解析子网掩码，解析失败时panic
func MustParseMask(s string) SubnetMask {
	mask, err := ParseMask(s)
	if err != nil {
		panic(err)
	}
	return mask
}

// MaskFromPrefix 根据前缀长度构造子网掩码
// 例如：24 → 255.255.255.0
func MaskFromPrefix(prefix int) SubnetMask {
	var mask SubnetMask
	for i := 0; i < 4; i++ {
		if prefix >= 8 {
			mask[i] = 0xFF
			prefix -= 8
		} else if prefix > 0 {
			mask[i] = byte(0xFF << (8 - prefix))
			prefix = 0
		}
	}
	return mask
}

// String 返回点分十进制字符串表示
func (m SubnetMask) String() string {
	return IPAddress(m).String()
}

// PrefixLength 返回CIDR前缀长度（掩码中1的位数）
// 最长前缀匹配时用于比较路由的具体程度
func (m SubnetMask) PrefixLength() int {
	ones := 0
	for _, b := range m {
		for bit := 7; bit >= 0; bit-- {
			if b&(1<<bit) != 0 {
				ones++
			} else {
				return ones
			}
		}
	}
	return ones
}

// Network 计算IP地址所在的网络地址（按位与）
func (m SubnetMask) Network(ip IPAddress) IPAddress {
	var network IPAddress
	for i := 0; i < 4; i++ {
		network[i] = ip[i] & m[i]
	}
	return network
}

// SameSubnet 判断两个IP地址是否位于同一子网
func (m SubnetMask) SameSubnet(a, b IPAddress) bool {
	return m.Network(a) == m.Network(b)
}
