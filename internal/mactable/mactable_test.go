package mactable

import (
	"testing"
	"time"

	"netsim-os/internal/packet"
)

func TestNewTable(t *testing.T) {
	table := NewTable()
	if table == nil {
		t.Fatal("NewTable() returned nil")
	}

	stats := table.GetStatistics()
	if stats.TableSize != 0 {
		t.Errorf("Expected empty table, got %d entries", stats.TableSize)
	}
	if table.AgingTime() != DefaultAgingTime {
		t.Errorf("Expected default aging time %v, got %v", DefaultAgingTime, table.AgingTime())
	}
}

func TestLearnAndLookup(t *testing.T) {
	table := NewTable()
	mac := packet.MustParseMAC("AA:BB:CC:DD:EE:01")

	table.Learn(mac, "eth0")

	port, found := table.Lookup(mac)
	if !found {
		t.Fatal("Expected to find learned MAC")
	}
	if port != "eth0" {
		t.Errorf("Expected port eth0, got %s", port)
	}

	if !table.HasEntry(mac) {
		t.Error("Expected HasEntry to return true for learned MAC")
	}

	// 未学习的MAC查不到
	unknown := packet.MustParseMAC("AA:BB:CC:DD:EE:99")
	if _, found := table.Lookup(unknown); found {
		t.Error("Expected lookup miss for unknown MAC")
	}

	stats := table.GetStatistics()
	if stats.TableSize != 1 {
		t.Errorf("Expected 1 entry, got %d", stats.TableSize)
	}
	if stats.LearningCount != 1 {
		t.Errorf("Expected 1 learning event, got %d", stats.LearningCount)
	}
	if stats.Moves != 0 {
		t.Errorf("Expected 0 moves, got %d", stats.Moves)
	}
}

func TestLearnIdempotent(t *testing.T) {
	table := NewTable()
	mac := packet.MustParseMAC("AA:BB:CC:DD:EE:01")

	// 相同的(MAC,端口)对重复学习不产生额外统计
	table.Learn(mac, "eth0")
	table.Learn(mac, "eth0")
	table.Learn(mac, "eth0")

	stats := table.GetStatistics()
	if stats.TableSize != 1 {
		t.Errorf("Expected 1 entry, got %d", stats.TableSize)
	}
	if stats.LearningCount != 1 {
		t.Errorf("Expected 1 learning event after repeated learn, got %d", stats.LearningCount)
	}
	if stats.Moves != 0 {
		t.Errorf("Expected 0 moves, got %d", stats.Moves)
	}
}

func TestLearnMove(t *testing.T) {
	table := NewTable()
	mac := packet.MustParseMAC("AA:BB:CC:DD:EE:01")

	table.Learn(mac, "eth0")
	// 同一MAC在新端口上出现，覆盖旧映射并计一次迁移
	table.Learn(mac, "eth1")

	port, found := table.Lookup(mac)
	if !found || port != "eth1" {
		t.Errorf("Expected MAC to move to eth1, got %s (found=%v)", port, found)
	}

	stats := table.GetStatistics()
	if stats.TableSize != 1 {
		t.Errorf("Expected 1 entry after move, got %d", stats.TableSize)
	}
	if stats.LearningCount != 2 {
		t.Errorf("Expected 2 learning events, got %d", stats.LearningCount)
	}
	if stats.Moves != 1 {
		t.Errorf("Expected 1 move, got %d", stats.Moves)
	}
}

func TestClearExpired(t *testing.T) {
	table := NewTable()
	table.SetAgingTime(10 * time.Millisecond)

	table.Learn(packet.MustParseMAC("AA:BB:CC:DD:EE:01"), "eth0")
	table.Learn(packet.MustParseMAC("AA:BB:CC:DD:EE:02"), "eth1")

	// 未超时不清理
	if removed := table.ClearExpired(); removed != 0 {
		t.Errorf("Expected 0 removed before aging, got %d", removed)
	}

	time.Sleep(20 * time.Millisecond)

	if removed := table.ClearExpired(); removed != 2 {
		t.Errorf("Expected 2 removed after aging, got %d", removed)
	}
	if table.GetStatistics().TableSize != 0 {
		t.Errorf("Expected empty table after aging, got %d entries", table.GetStatistics().TableSize)
	}
}

func TestFlushKeepsStatistics(t *testing.T) {
	table := NewTable()

	table.Learn(packet.MustParseMAC("AA:BB:CC:DD:EE:01"), "eth0")
	table.Learn(packet.MustParseMAC("AA:BB:CC:DD:EE:01"), "eth1")

	table.Flush()

	stats := table.GetStatistics()
	if stats.TableSize != 0 {
		t.Errorf("Expected empty table after flush, got %d entries", stats.TableSize)
	}
	if stats.LearningCount != 2 || stats.Moves != 1 {
		t.Errorf("Expected statistics to survive flush, got learns=%d moves=%d",
			stats.LearningCount, stats.Moves)
	}
}
