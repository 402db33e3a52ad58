package core

// Metadata 事件元数据（链路追踪 ID、来源标签等）
type Metadata map[string]string

// Get 获取元数据值，key 不存在返回空字符串。
func (m Metadata) Get(key string) string {
	if m == nil {
		return ""
	}
	return m[key]
}

// Set 设置元数据值。
func (m Metadata) Set(key, value string) {
	m[key] = value
}

// Copy 深拷贝（history 快照使用）
func (m Metadata) Copy() Metadata {
	if m == nil {
		return nil
	}
	cp := make(Metadata, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
