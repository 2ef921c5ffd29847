// internal/logger/logger.go

// Package logger 提供带颜色的分级日志
package logger

import (
	"io"
	"log"
	"os"
	"sync"

	"github.com/fatih/color"
)

type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	OffLevel
)

var (
	// 预定义带颜色的打印函数
	debugPrintf = color.New(color.FgCyan).SprintfFunc()
	infoPrintf  = color.New(color.FgGreen).SprintfFunc()
	warnPrintf  = color.New(color.FgYellow).SprintfFunc()
	errorPrintf = color.New(color.FgRed).SprintfFunc()
	fatalPrintf = color.New(color.FgRed, color.Bold).SprintfFunc()
)

type Logger struct {
	logger *log.Logger
	level  Level
	mu     sync.Mutex
}

var defaultLogger = &Logger{
	logger: log.New(os.Stdout, "", log.LstdFlags),
	level:  InfoLevel,
}

func SetLevel(level Level) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.level = level
}

func SetOutput(w io.Writer) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.logger = log.New(w, "", log.LstdFlags)

	// 输出不是终端时禁用颜色
	if f, ok := w.(*os.File); !ok || (f != os.Stdout && f != os.Stderr) {
		color.NoColor = true
	}
}

func Debug(format string, v ...interface{}) {
	if defaultLogger.level <= DebugLevel {
		defaultLogger.logger.Print(debugPrintf("[DEBUG] "+format, v...))
	}
}

func Info(format string, v ...interface{}) {
	if defaultLogger.level <= InfoLevel {
		defaultLogger.logger.Print(infoPrintf("[INFO] "+format, v...))
	}
}

func Warn(format string, v ...interface{}) {
	if defaultLogger.level <= WarnLevel {
		defaultLogger.logger.Print(warnPrintf("[WARN] "+format, v...))
	}
}

func Error(format string, v ...interface{}) {
	if defaultLogger.level <= ErrorLevel {
		defaultLogger.logger.Print(errorPrintf("[ERROR] "+format, v...))
	}
}

// Fatal 打印后退出进程,仅用于启动阶段的配置错误
func Fatal(format string, v ...interface{}) {
	defaultLogger.logger.Print(fatalPrintf("[FATAL] "+format, v...))
	os.Exit(1)
}
