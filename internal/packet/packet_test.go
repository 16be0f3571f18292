package packet

import (
	"testing"
)

func TestParseMAC(t *testing.T) {
	mac, err := ParseMAC("AA:BB:CC:DD:EE:01")
	if err != nil {
		t.Fatalf("ParseMAC() failed: %v", err)
	}

	expected := MACAddress{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0x01}
	if mac != expected {
		t.Errorf("Expected %v, got %v", expected, mac)
	}

	if mac.String() != "AA:BB:CC:DD:EE:01" {
		t.Errorf("Expected AA:BB:CC:DD:EE:01, got %s", mac.String())
	}

	// 小写输入也能解析
	mac2, err := ParseMAC("aa:bb:cc:dd:ee:01")
	if err != nil {
		t.Fatalf("ParseMAC() failed on lowercase input: %v", err)
	}
	if mac2 != mac {
		t.Errorf("Expected lowercase parse to match, got %v", mac2)
	}

	// 非法输入
	invalid := []string{"", "AA:BB:CC", "AA:BB:CC:DD:EE:GG", "AA-BB-CC-DD-EE-01"}
	for _, s := range invalid {
		if _, err := ParseMAC(s); err == nil {
			t.Errorf("Expected error for %q, got nil", s)
		}
	}
}

func TestMACClassification(t *testing.T) {
	if !BroadcastMAC.IsBroadcast() {
		t.Error("Expected broadcast MAC to be broadcast")
	}
	if BroadcastMAC.IsMulticast() {
		t.Error("Broadcast MAC should not be classified as multicast")
	}

	multicast := MustParseMAC("01:00:5E:00:00:01")
	if !multicast.IsMulticast() {
		t.Error("Expected 01:00:5E:00:00:01 to be multicast")
	}
	if multicast.IsBroadcast() {
		t.Error("Multicast MAC should not be broadcast")
	}

	unicast := MustParseMAC("AA:BB:CC:DD:EE:01")
	if unicast.IsBroadcast() || unicast.IsMulticast() {
		t.Error("Expected AA:BB:CC:DD:EE:01 to be unicast")
	}
}

func TestParseIPv4(t *testing.T) {
	ip, err := ParseIPv4("192.168.1.10")
	if err != nil {
		t.Fatalf("ParseIPv4() failed: %v", err)
	}

	if ip != (IPAddress{192, 168, 1, 10}) {
		t.Errorf("Expected 192.168.1.10, got %v", ip)
	}
	if ip.String() != "192.168.1.10" {
		t.Errorf("Expected 192.168.1.10, got %s", ip.String())
	}

	invalid := []string{"", "192.168.1", "192.168.1.256", "a.b.c.d"}
	for _, s := range invalid {
		if _, err := ParseIPv4(s); err == nil {
			t.Errorf("Expected error for %q, got nil", s)
		}
	}

	if !(IPAddress{}).IsZero() {
		t.Error("Expected 0.0.0.0 to be zero")
	}
	if ip.IsZero() {
		t.Error("192.168.1.10 should not be zero")
	}
}

func TestSubnetMask(t *testing.T) {
	mask := MustParseMask("255.255.255.0")

	if mask.PrefixLength() != 24 {
		t.Errorf("Expected prefix length 24, got %d", mask.PrefixLength())
	}

	if MaskFromPrefix(24) != mask {
		t.Errorf("Expected MaskFromPrefix(24) to equal 255.255.255.0, got %s", MaskFromPrefix(24))
	}
	if MaskFromPrefix(0) != (SubnetMask{}) {
		t.Errorf("Expected MaskFromPrefix(0) to be 0.0.0.0, got %s", MaskFromPrefix(0))
	}
	if MaskFromPrefix(32) != MustParseMask("255.255.255.255") {
		t.Errorf("Expected MaskFromPrefix(32) to be 255.255.255.255, got %s", MaskFromPrefix(32))
	}

	network := mask.Network(MustParseIPv4("192.168.1.10"))
	if network != MustParseIPv4("192.168.1.0") {
		t.Errorf("Expected network 192.168.1.0, got %s", network)
	}

	if !mask.SameSubnet(MustParseIPv4("192.168.1.10"), MustParseIPv4("192.168.1.20")) {
		t.Error("Expected 192.168.1.10 and 192.168.1.20 to be in the same /24")
	}
	if mask.SameSubnet(MustParseIPv4("192.168.1.10"), MustParseIPv4("10.0.0.5")) {
		t.Error("Expected 192.168.1.10 and 10.0.0.5 to be in different subnets")
	}
}

func TestFrameClassification(t *testing.T) {
	broadcast := &EthernetFrame{
		Source:      MustParseMAC("AA:BB:CC:DD:EE:01"),
		Destination: BroadcastMAC,
		EtherType:   EtherTypeARP,
	}
	if !broadcast.IsBroadcast() {
		t.Error("Expected broadcast frame")
	}

	multicast := &EthernetFrame{
		Destination: MustParseMAC("01:00:5E:00:00:01"),
		EtherType:   EtherTypeIPv4,
	}
	if !multicast.IsMulticast() {
		t.Error("Expected multicast frame")
	}
	if multicast.IsBroadcast() {
		t.Error("Multicast frame should not be broadcast")
	}
}

func TestIPv4Checksum(t *testing.T) {
	pkt := &IPv4Packet{
		Version:     IPv4Version,
		IHL:         IPv4MinIHL,
		TotalLength: 84,
		TTL:         64,
		Protocol:    ProtocolICMP,
		Source:      MustParseIPv4("192.168.1.10"),
		Destination: MustParseIPv4("10.0.0.5"),
	}

	pkt.UpdateChecksum()
	if !pkt.ChecksumValid() {
		t.Error("Expected checksum to be valid after UpdateChecksum()")
	}

	// TTL变更使旧校验和失效
	pkt.TTL--
	if pkt.ChecksumValid() {
		t.Error("Expected checksum to be invalid after TTL change")
	}

	pkt.UpdateChecksum()
	if !pkt.ChecksumValid() {
		t.Error("Expected checksum to be valid after recomputation")
	}
}

func TestValidateHeader(t *testing.T) {
	valid := func() *IPv4Packet {
		pkt := &IPv4Packet{
			Version:     IPv4Version,
			IHL:         IPv4MinIHL,
			TotalLength: 40,
			TTL:         64,
			Protocol:    ProtocolICMP,
			Source:      MustParseIPv4("192.168.1.10"),
			Destination: MustParseIPv4("10.0.0.5"),
		}
		pkt.UpdateChecksum()
		return pkt
	}

	if reason := valid().ValidateHeader(); reason != HeaderOK {
		t.Errorf("Expected HeaderOK, got %v", reason)
	}

	// 校验和错误
	pkt := valid()
	pkt.HeaderChecksum ^= 0xFFFF
	if reason := pkt.ValidateHeader(); reason != HeaderErrorChecksum {
		t.Errorf("Expected HeaderErrorChecksum, got %v", reason)
	}

	// 版本号错误（重算校验和后版本检查才会生效）
	pkt = valid()
	pkt.Version = 6
	pkt.UpdateChecksum()
	if reason := pkt.ValidateHeader(); reason != HeaderErrorVersion {
		t.Errorf("Expected HeaderErrorVersion, got %v", reason)
	}

	// IHL错误
	pkt = valid()
	pkt.IHL = 4
	pkt.UpdateChecksum()
	if reason := pkt.ValidateHeader(); reason != HeaderErrorIHL {
		t.Errorf("Expected HeaderErrorIHL, got %v", reason)
	}

	// 总长度小于头部长度
	pkt = valid()
	pkt.TotalLength = 12
	pkt.UpdateChecksum()
	if reason := pkt.ValidateHeader(); reason != HeaderErrorLength {
		t.Errorf("Expected HeaderErrorLength, got %v", reason)
	}
}

func TestICMPEcho(t *testing.T) {
	request := NewEchoRequest(1234, 7, 32)
	if request.Type != ICMPTypeEchoRequest {
		t.Errorf("Expected EchoRequest, got %v", request.Type)
	}
	if request.Length() != ICMPHeaderSize+32 {
		t.Errorf("Expected length %d, got %d", ICMPHeaderSize+32, request.Length())
	}

	reply := NewEchoReply(request)
	if reply.Type != ICMPTypeEchoReply {
		t.Errorf("Expected EchoReply, got %v", reply.Type)
	}
	if reply.ID != request.ID || reply.Sequence != request.Sequence || reply.DataSize != request.DataSize {
		t.Error("Echo reply must preserve ID, sequence and data size of the request")
	}
}
