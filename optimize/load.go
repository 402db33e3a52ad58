package optimize

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"
)

// fileProfile YAML 文件结构（在 Profile 之外补充可序列化的信号名）
type fileProfile struct {
	Profile `yaml:",inline"`
	Signals []string `yaml:"signals"`
}

// signalNames 可在配置文件中使用的信号（均为终止类：清理一次后重新投递，进程照常退出）
var signalNames = map[string]os.Signal{
	"SIGINT":  os.Interrupt,
	"SIGTERM": syscall.SIGTERM,
	"SIGHUP":  syscall.SIGHUP,
}

// Load 读取 YAML 配置。base 字段可选，指定作为起点的预设（默认 default），
// 文件中出现的字段覆盖预设值；时长使用 Go duration 字符串（如 "5s"）。
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("optimize: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse 解析 YAML 配置内容
func Parse(data []byte) (*Profile, error) {
	var head struct {
		Base string `yaml:"base"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("optimize: parse profile: %w", err)
	}

	fp := struct {
		fileProfile `yaml:",inline"`
		Base        string `yaml:"base"`
	}{fileProfile: fileProfile{Profile: *Preset(head.Base)}}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fp); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("optimize: parse profile: %w", err)
	}

	p := fp.Profile
	for _, name := range fp.Signals {
		sig, ok := signalNames[strings.ToUpper(name)]
		if !ok {
			return nil, fmt.Errorf("optimize: unknown signal %q", name)
		}
		p.Cleanup.Signals = append(p.Cleanup.Signals, sig)
	}
	return &p, nil
}
