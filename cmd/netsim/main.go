package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"netsim-os/internal/cli"
	"netsim-os/internal/config"
	"netsim-os/internal/dao"
	"netsim-os/internal/database"
	"netsim-os/internal/logging"
	"netsim-os/internal/scheduler"
	"netsim-os/internal/simulator"
)

func main() {
	// 命令行参数
	var (
		configFile = flag.String("config", "config.json", "配置文件路径")
		help       = flag.Bool("help", false, "显示帮助信息")
	)
	flag.Parse()

	if *help {
		fmt.Println("NetSim OS - 网络设备模拟器")
		fmt.Println()
		fmt.Println("用法:")
		flag.PrintDefaults()
		return
	}

	log.Println("启动 NetSim OS...")

	// 加载配置文件
	log.Printf("加载配置文件: %s", *configFile)
	configManager := config.NewConfigManager(*configFile)
	if err := configManager.Load(); err != nil {
		log.Fatalf("加载配置文件失败: %v", err)
	}
	cfg := configManager.GetConfig()
	log.Printf("配置加载成功 - %d台设备, %d条链路", len(cfg.Devices), len(cfg.Links))

	// 初始化日志
	logger := logging.InitDefault(logging.ParseLogLevel(cfg.LogLevel), cfg.LogFile)
	defer func() {
		_ = logger.Close()
	}()

	// 初始化数据库（可选）
	var daoManager *dao.Manager
	if cfg.Database != "" {
		log.Printf("初始化数据库: %s", cfg.Database)
		var err error
		daoManager, err = dao.NewManager(context.Background(), &database.Config{
			Type:     "sqlite",
			FilePath: cfg.Database,
		})
		if err != nil {
			log.Fatalf("初始化数据库失败: %v", err)
		}
		defer func() {
			_ = daoManager.Close()
		}()

		// 数据库中存在配置快照时优先恢复
		snapshot, err := daoManager.LoadConfig(context.Background())
		if err != nil {
			log.Fatalf("读取配置快照失败: %v", err)
		}
		if snapshot != nil {
			log.Printf("从数据库恢复配置快照: %d台设备, %d条链路", len(snapshot.Devices), len(snapshot.Links))
			configManager.SetConfig(snapshot)
		}
	}

	// 构建模拟器拓扑
	log.Println("构建网络拓扑...")
	sim := simulator.New(scheduler.NewReal())
	if err := sim.Build(configManager.GetConfig()); err != nil {
		log.Fatalf("构建拓扑失败: %v", err)
	}

	log.Println("NetSim OS 启动完成!")

	// 进入交互式命令行，CLI退出即程序退出
	shell := cli.NewCLI(sim, configManager, daoManager)
	shell.Start()

	log.Println("NetSim OS 已关闭")
}
