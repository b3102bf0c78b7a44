package main

import (
	"fwversion/internal/buildinfo"
	"fwversion/pkg/render"
)

func defaultRunDeps() runDeps {
	return runDeps{
		newLogger:        newLogger,
		loadConfig:       loadConfig,
		newProvider:      defaultProviderFactory,
		writeFile:        render.WriteFileIfChanged,
		currentBuildInfo: buildinfo.Current,
	}
}
