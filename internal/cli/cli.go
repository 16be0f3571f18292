package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"netsim-os/internal/arp"
	"netsim-os/internal/config"
	"netsim-os/internal/dao"
	"netsim-os/internal/packet"
	"netsim-os/internal/simulator"

	"github.com/chzyer/readline"
)

// CLI 命令行接口
// 操作员的管理入口，只通过设备的访问器操作模拟器，
// 不触及任何转发内部状态
type CLI struct {
	sim           *simulator.Simulator
	configManager *config.ConfigManager
	daoManager    *dao.Manager
	running       bool
	rl            *readline.Instance
	historyFile   string
}

// NewCLI 创建CLI实例
func NewCLI(sim *simulator.Simulator, cm *config.ConfigManager, dm *dao.Manager) *CLI {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "/tmp"
	}

	return &CLI{
		sim:           sim,
		configManager: cm,
		daoManager:    dm,
		historyFile:   filepath.Join(homeDir, ".netsim-os_history"),
	}
}

// Start 启动CLI主循环
func (cli *CLI) Start() {
	cli.running = true
	fmt.Println("NetSim OS CLI 已启动")
	fmt.Println("输入 'help' 查看可用命令")

	cfg := &readline.Config{
		Prompt:          "netsim> ",
		HistoryFile:     cli.historyFile,
		AutoComplete:    cli.createCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	}

	var err error
	cli.rl, err = readline.NewEx(cfg)
	if err != nil {
		fmt.Printf("初始化CLI失败: %v\n", err)
		return
	}
	defer func() {
		_ = cli.rl.Close()
	}()

	for cli.running {
		line, err := cli.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			} else if err == io.EOF {
				break
			}
			fmt.Printf("读取输入失败: %v\n", err)
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		cli.processCommand(line)
	}
}

// Stop 停止CLI
func (cli *CLI) Stop() {
	cli.running = false
}

// createCompleter 创建命令自动补全器
func (cli *CLI) createCompleter() readline.AutoCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("devices"),
		readline.PcItem("links"),
		readline.PcItem("show",
			readline.PcItem("routes"),
			readline.PcItem("arp"),
			readline.PcItem("mac"),
			readline.PcItem("counters"),
			readline.PcItem("ports"),
			readline.PcItem("stats"),
		),
		readline.PcItem("ping"),
		readline.PcItem("interface"),
		readline.PcItem("route",
			readline.PcItem("add"),
			readline.PcItem("default"),
		),
		readline.PcItem("arp",
			readline.PcItem("add"),
		),
		readline.PcItem("port",
			readline.PcItem("up"),
			readline.PcItem("down"),
		),
		readline.PcItem("counters",
			readline.PcItem("reset"),
		),
		readline.PcItem("save"),
		readline.PcItem("load"),
		readline.PcItem("exit"),
	)
}

// processCommand 分发命令
func (cli *CLI) processCommand(line string) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help":
		cli.printHelp()
	case "devices":
		cli.handleDevices()
	case "links":
		cli.handleLinks()
	case "show":
		cli.handleShow(args)
	case "ping":
		cli.handlePing(args)
	case "interface":
		cli.handleInterface(args)
	case "route":
		cli.handleRoute(args)
	case "arp":
		cli.handleARP(args)
	case "port":
		cli.handlePort(args)
	case "counters":
		cli.handleCounters(args)
	case "save":
		cli.handleSave()
	case "load":
		cli.handleLoad()
	case "exit", "quit":
		cli.running = false
	default:
		fmt.Printf("未知命令: %s，输入 'help' 查看可用命令\n", cmd)
	}
}

// printHelp 打印帮助信息
func (cli *CLI) printHelp() {
	fmt.Println("可用命令:")
	fmt.Println("  devices                                    列出所有设备")
	fmt.Println("  links                                      列出所有链路")
	fmt.Println("  show routes <路由器>                        显示路由表")
	fmt.Println("  show arp <设备>                             显示ARP表")
	fmt.Println("  show mac <交换机>                           显示MAC地址表")
	fmt.Println("  show counters <路由器>                      显示计数器")
	fmt.Println("  show ports <设备>                           显示端口")
	fmt.Println("  show stats <交换机>                         显示交换统计")
	fmt.Println("  ping <主机> <目标IP> [次数]                  发起ping")
	fmt.Println("  interface <路由器> <接口> <IP> <掩码>        配置接口")
	fmt.Println("  route add <路由器> <网络> <掩码> <下一跳> [度量]")
	fmt.Println("  route default <路由器> <下一跳>              设置默认路由")
	fmt.Println("  arp add <路由器> <IP> <MAC> <接口>           添加静态ARP")
	fmt.Println("  port up|down <路由器> <端口>                 启用/禁用端口")
	fmt.Println("  counters reset <路由器>                     清零计数器")
	fmt.Println("  save / load                                保存/加载配置快照")
	fmt.Println("  exit                                       退出")
}

// handleDevices 列出所有设备
func (cli *CLI) handleDevices() {
	ids := cli.sim.Network().Devices()
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Println(" ", id)
	}
}

// handleLinks 列出所有链路
func (cli *CLI) handleLinks() {
	for _, link := range cli.sim.Network().Links() {
		fmt.Printf("  %s/%s <-> %s/%s\n", link.ADevice, link.APort, link.BDevice, link.BPort)
	}
}

// handleShow 处理show命令
func (cli *CLI) handleShow(args []string) {
	if len(args) < 2 {
		fmt.Println("用法: show <routes|arp|mac|counters|ports|stats> <设备>")
		return
	}

	what, devID := args[0], args[1]

	switch what {
	case "routes":
		cli.showRoutes(devID)
	case "arp":
		cli.showARP(devID)
	case "mac":
		cli.showMAC(devID)
	case "counters":
		cli.showCounters(devID)
	case "ports":
		cli.showPorts(devID)
	case "stats":
		cli.showStats(devID)
	default:
		fmt.Printf("未知的show子命令: %s\n", what)
	}
}

func (cli *CLI) showRoutes(devID string) {
	router, err := cli.sim.GetRouter(devID)
	if err != nil {
		fmt.Println("错误:", err)
		return
	}

	fmt.Printf("%-18s %-15s %-15s %-8s %-6s %-4s %s\n",
		"网络", "掩码", "下一跳", "接口", "类型", "AD", "度量")
	for _, route := range router.GetRoutingTable() {
		nextHop := "直连"
		if route.NextHop != nil {
			nextHop = route.NextHop.String()
		}
		fmt.Printf("%-18s %-15s %-15s %-8s %-6s %-4d %d\n",
			route.Network, route.Mask, nextHop, route.Interface, route.Type, route.AD, route.Metric)
	}
}

func (cli *CLI) showARP(devID string) {
	var entries []arp.Entry
	if router, err := cli.sim.GetRouter(devID); err == nil {
		entries = router.GetARPTable()
	} else if host, err := cli.sim.GetHost(devID); err == nil {
		entries = host.ARPTable().Entries()
	} else {
		fmt.Printf("错误: 设备 %s 不存在或没有ARP表\n", devID)
		return
	}

	fmt.Printf("%-18s %-20s %-8s %-6s %s\n", "IP地址", "MAC地址", "接口", "类型", "时间")
	for _, entry := range entries {
		kind := "动态"
		if entry.Static {
			kind = "静态"
		}
		fmt.Printf("%-18s %-20s %-8s %-6s %s\n",
			entry.IPAddress, entry.MACAddress, entry.Interface, kind,
			entry.Timestamp.Format("15:04:05"))
	}
}

func (cli *CLI) showMAC(devID string) {
	sw, err := cli.sim.GetSwitch(devID)
	if err != nil {
		fmt.Println("错误:", err)
		return
	}

	fmt.Printf("%-20s %-8s %s\n", "MAC地址", "端口", "最后出现")
	for _, entry := range sw.MACTable().Entries() {
		fmt.Printf("%-20s %-8s %s\n", entry.MAC, entry.Port, entry.LastSeen.Format("15:04:05"))
	}

	stats := sw.MACTable().GetStatistics()
	fmt.Printf("条目: %d  学习: %d  迁移: %d\n", stats.TableSize, stats.LearningCount, stats.Moves)
}

func (cli *CLI) showCounters(devID string) {
	router, err := cli.sim.GetRouter(devID)
	if err != nil {
		fmt.Println("错误:", err)
		return
	}

	c := router.GetCounters()
	fmt.Printf("  ipInReceives:        %d\n", c.IPInReceives)
	fmt.Printf("  ipInOctets:          %d\n", c.IPInOctets)
	fmt.Printf("  ipInHdrErrors:       %d\n", c.IPInHdrErrors)
	fmt.Printf("  ipInAddrErrors:      %d\n", c.IPInAddrErrors)
	fmt.Printf("  ipInDelivers:        %d\n", c.IPInDelivers)
	fmt.Printf("  ipForwDatagrams:     %d\n", c.IPForwDatagrams)
	fmt.Printf("  ipOutOctets:         %d\n", c.IPOutOctets)
	fmt.Printf("  icmpOutMsgs:         %d\n", c.ICMPOutMsgs)
	fmt.Printf("  icmpOutTimeExcds:    %d\n", c.ICMPOutTimeExcds)
	fmt.Printf("  icmpOutDestUnreachs: %d\n", c.ICMPOutDestUnreachs)
	fmt.Printf("  icmpOutEchoReps:     %d\n", c.ICMPOutEchoReps)
}

func (cli *CLI) showPorts(devID string) {
	dev, err := cli.sim.Network().GetDevice(devID)
	if err != nil {
		fmt.Println("错误:", err)
		return
	}

	fmt.Printf("%-8s %-20s %-18s %-6s %-8s %s\n", "端口", "MAC地址", "IP地址", "状态", "发送", "接收")
	for _, port := range dev.Ports().AllPorts() {
		ipStr := "-"
		if port.HasIP() {
			ipStr = fmt.Sprintf("%s/%d", port.IP, port.Mask.PrefixLength())
		}
		status := "up"
		if !port.Up {
			status = "down"
		}
		fmt.Printf("%-8s %-20s %-18s %-6s %-8d %d\n",
			port.Name, port.MAC, ipStr, status, port.TxFrames, port.RxFrames)
	}
}

func (cli *CLI) showStats(devID string) {
	sw, err := cli.sim.GetSwitch(devID)
	if err != nil {
		fmt.Println("错误:", err)
		return
	}

	stats := sw.Engine().GetStatistics()
	fmt.Printf("  帧总数: %d\n", stats.TotalFrames)
	fmt.Printf("  单播:   %d\n", stats.UnicastFrames)
	fmt.Printf("  广播:   %d\n", stats.BroadcastFrames)
	fmt.Printf("  组播:   %d\n", stats.MulticastFrames)
	fmt.Printf("  泛洪:   %d\n", stats.FloodedFrames)
}

// handlePing 处理ping命令
func (cli *CLI) handlePing(args []string) {
	if len(args) < 2 {
		fmt.Println("用法: ping <主机> <目标IP> [次数]")
		return
	}

	host, err := cli.sim.GetHost(args[0])
	if err != nil {
		fmt.Println("错误:", err)
		return
	}

	dst, err := packet.ParseIPv4(args[1])
	if err != nil {
		fmt.Println("错误:", err)
		return
	}

	count := 1
	if len(args) > 2 {
		if n, err := strconv.Atoi(args[2]); err == nil && n > 0 {
			count = n
		}
	}

	before := host.Stats().EchoRepliesReceived
	for seq := 1; seq <= count; seq++ {
		host.Ping(dst, os.Getpid()&0xFFFF, seq, 32)
	}
	after := host.Stats().EchoRepliesReceived

	fmt.Printf("发送 %d 个回显请求, 收到 %d 个应答\n", count, after-before)
}

// handleInterface 配置路由器接口
func (cli *CLI) handleInterface(args []string) {
	if len(args) < 4 {
		fmt.Println("用法: interface <路由器> <接口> <IP> <掩码>")
		return
	}

	router, err := cli.sim.GetRouter(args[0])
	if err != nil {
		fmt.Println("错误:", err)
		return
	}

	ip, err := packet.ParseIPv4(args[2])
	if err != nil {
		fmt.Println("错误:", err)
		return
	}
	mask, err := packet.ParseMask(args[3])
	if err != nil {
		fmt.Println("错误:", err)
		return
	}

	if err := router.ConfigureInterface(args[1], ip, mask); err != nil {
		fmt.Println("错误:", err)
		return
	}
	fmt.Println("接口配置完成")
}

// handleRoute 处理route命令
func (cli *CLI) handleRoute(args []string) {
	if len(args) == 0 {
		fmt.Println("用法: route <add|default> ...")
		return
	}

	switch args[0] {
	case "add":
		if len(args) < 5 {
			fmt.Println("用法: route add <路由器> <网络> <掩码> <下一跳> [度量]")
			return
		}
		router, err := cli.sim.GetRouter(args[1])
		if err != nil {
			fmt.Println("错误:", err)
			return
		}
		network, err1 := packet.ParseIPv4(args[2])
		mask, err2 := packet.ParseMask(args[3])
		nextHop, err3 := packet.ParseIPv4(args[4])
		if err1 != nil || err2 != nil || err3 != nil {
			fmt.Println("错误: 无效的地址格式")
			return
		}
		metric := 0
		if len(args) > 5 {
			metric, _ = strconv.Atoi(args[5])
		}
		if !router.AddStaticRoute(network, mask, nextHop, metric) {
			fmt.Println("静态路由添加失败: 下一跳不在任何已配置接口的子网内")
			return
		}
		fmt.Println("静态路由已添加")

	case "default":
		if len(args) < 3 {
			fmt.Println("用法: route default <路由器> <下一跳>")
			return
		}
		router, err := cli.sim.GetRouter(args[1])
		if err != nil {
			fmt.Println("错误:", err)
			return
		}
		nextHop, err := packet.ParseIPv4(args[2])
		if err != nil {
			fmt.Println("错误:", err)
			return
		}
		if !router.SetDefaultRoute(nextHop, 0) {
			fmt.Println("默认路由设置失败: 下一跳不在任何已配置接口的子网内")
			return
		}
		fmt.Println("默认路由已设置")

	default:
		fmt.Printf("未知的route子命令: %s\n", args[0])
	}
}

// handleARP 处理arp命令
func (cli *CLI) handleARP(args []string) {
	if len(args) < 1 || args[0] != "add" {
		fmt.Println("用法: arp add <路由器> <IP> <MAC> <接口>")
		return
	}
	if len(args) < 5 {
		fmt.Println("用法: arp add <路由器> <IP> <MAC> <接口>")
		return
	}

	router, err := cli.sim.GetRouter(args[1])
	if err != nil {
		fmt.Println("错误:", err)
		return
	}

	ip, err := packet.ParseIPv4(args[2])
	if err != nil {
		fmt.Println("错误:", err)
		return
	}
	mac, err := packet.ParseMAC(args[3])
	if err != nil {
		fmt.Println("错误:", err)
		return
	}

	router.AddStaticARP(ip, mac, args[4])
	fmt.Println("静态ARP条目已添加")
}

// handlePort 处理port命令
func (cli *CLI) handlePort(args []string) {
	if len(args) < 3 || (args[0] != "up" && args[0] != "down") {
		fmt.Println("用法: port <up|down> <路由器> <端口>")
		return
	}

	router, err := cli.sim.GetRouter(args[1])
	if err != nil {
		fmt.Println("错误:", err)
		return
	}

	if err := router.SetPortUp(args[2], args[0] == "up"); err != nil {
		fmt.Println("错误:", err)
		return
	}
	fmt.Printf("端口 %s 已%s\n", args[2], map[string]string{"up": "启用", "down": "禁用"}[args[0]])
}

// handleCounters 处理counters命令
func (cli *CLI) handleCounters(args []string) {
	if len(args) < 2 || args[0] != "reset" {
		fmt.Println("用法: counters reset <路由器>")
		return
	}

	router, err := cli.sim.GetRouter(args[1])
	if err != nil {
		fmt.Println("错误:", err)
		return
	}

	router.ResetCounters()
	fmt.Println("计数器已清零")
}

// handleSave 保存配置快照到数据库
func (cli *CLI) handleSave() {
	if cli.daoManager == nil {
		fmt.Println("错误: 数据库未启用")
		return
	}

	if err := cli.daoManager.SaveConfig(context.Background(), cli.configManager.GetConfig()); err != nil {
		fmt.Println("保存失败:", err)
		return
	}
	fmt.Println("配置快照已保存")
}

// handleLoad 从数据库加载配置快照
// 加载的配置在下次启动时生效
func (cli *CLI) handleLoad() {
	if cli.daoManager == nil {
		fmt.Println("错误: 数据库未启用")
		return
	}

	cfg, err := cli.daoManager.LoadConfig(context.Background())
	if err != nil {
		fmt.Println("加载失败:", err)
		return
	}
	if cfg == nil {
		fmt.Println("数据库中没有配置快照")
		return
	}

	cli.configManager.SetConfig(cfg)
	fmt.Printf("配置快照已加载: %d台设备, %d条链路（重启后生效）\n", len(cfg.Devices), len(cfg.Links))
}
