package main

import (
	"flag"
	"os"

	"github.com/windrose-proxy/windrose/config"
	"github.com/windrose-proxy/windrose/hub/executor"
	"github.com/windrose-proxy/windrose/hub/route"
	"github.com/windrose-proxy/windrose/log"
)

var (
	configFile         string
	externalController string
	logLevel           string
)

func init() {
	flag.StringVar(&configFile, "f", "config.yaml", "specify configuration file")
	flag.StringVar(&externalController, "ext-ctl", "127.0.0.1:9090", "override external controller address")
	flag.StringVar(&logLevel, "l", "info", "log level (debug/info/warning/error/silent)")
	flag.Parse()
}

func main() {
	if level, ok := log.LogLevelMapping[logLevel]; ok {
		log.SetLevel(level)
	}

	buf, err := os.ReadFile(configFile)
	if err != nil {
		log.Fatalln("Read config error: %s", err.Error())
	}

	cfg, err := config.Parse(buf)
	if err != nil {
		log.Fatalln("Parse config error: %s", err.Error())
	}

	executor.ApplyConfig(cfg)

	if err := route.Start(externalController); err != nil {
		log.Fatalln("External controller error: %s", err.Error())
	}
}
