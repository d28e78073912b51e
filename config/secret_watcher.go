package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"TuneLib/logger"

	"github.com/fsnotify/fsnotify"
)

// ReadSecretFile 读取密钥文件，去掉首尾空白
func ReadSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read secret file: %w", err)
	}
	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", path)
	}
	return secret, nil
}

// SecretWatcher 监听密钥文件，文件内容变化时回调新密钥
type SecretWatcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// WatchSecretFile 开始监听 path。监听的是所在目录，这样编辑器"写临时文件再重命名"
// 以及 k8s secret 的软链接替换都能被捕获。
func WatchSecretFile(path string, onChange func(secret string)) (*SecretWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("resolve secret path: %w", err)
	}

	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch secret dir: %w", err)
	}

	sw := &SecretWatcher{watcher: watcher, done: make(chan struct{})}
	go sw.loop(absPath, onChange)
	return sw, nil
}

func (sw *SecretWatcher) loop(absPath string, onChange func(secret string)) {
	defer close(sw.done)

	for {
		select {
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			secret, err := ReadSecretFile(absPath)
			if err != nil {
				// 文件可能正处于截断后尚未写入的状态，等下一次事件
				logger.Warn("[Config] 忽略密钥文件事件", logger.String("path", absPath), logger.ErrorField(err))
				continue
			}
			onChange(secret)

		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("[Config] 密钥文件监听出错", logger.ErrorField(err))
		}
	}
}

// Close 停止监听
func (sw *SecretWatcher) Close() error {
	err := sw.watcher.Close()
	<-sw.done
	return err
}
