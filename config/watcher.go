package config

import (
	"os"

	"EchoQ/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
)

// WatchEnv 监听 .env 文件变化并热更新日志级别。
// 返回的函数用于停止监听。
func WatchEnv(path string) (func(), error) {
	if _, err := os.Stat(path); err != nil {
		// 没有 .env 文件就不监听
		return func() {}, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				vars, err := godotenv.Read(path)
				if err != nil {
					logger.Warn("failed to re-read .env", logger.ErrorField(err))
					continue
				}
				if level, ok := vars["LOG_LEVEL"]; ok {
					logger.SetLevel(logger.LogLevel(level))
					logger.Info("log level updated from .env", logger.String("level", level))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config watcher error", logger.ErrorField(err))
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}
