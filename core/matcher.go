// Package core 提供通配符匹配与层级路径逻辑
package core

import (
	"strings"

	"github.com/tidwall/match"
)

// patternChars [256]bool 查表，判断是否为 pattern 订阅
// 注: + 与 | 只参与路由判断，匹配时按字面量处理
var patternChars [256]bool

func init() {
	patternChars['*'] = true
	patternChars['?'] = true
	patternChars['+'] = true
	patternChars['|'] = true
}

// IsPattern 零分配检查名称是否包含 pattern 触发字符
func IsPattern(s string) bool {
	for i := 0; i < len(s); i++ {
		if patternChars[s[i]] {
			return true
		}
	}
	return false
}

// Matcher 预编译的 glob 匹配器（订阅时编译一次，发射时复用）
//
//	语法:
//	  *  任意长度字符（可跨越 '.'）
//	  ?  单个字符
//
// 编译产物为 match.Allowable 计算出的 [min, max] 字典序区间，
// 区间外的事件名无需进入逐字符匹配。
type Matcher struct {
	pattern string
	min     string
	max     string
	bounded bool
}

// CompileMatcher 编译 pattern
func CompileMatcher(pattern string) *Matcher {
	m := &Matcher{pattern: pattern}
	// 含转义符时 Allowable 的区间不可靠，退化为纯匹配
	if !strings.ContainsRune(pattern, '\\') {
		m.min, m.max = match.Allowable(pattern)
		m.bounded = m.min != ""
	}
	return m
}

// Pattern 原始 pattern
func (m *Matcher) Pattern() string {
	return m.pattern
}

// Match 测试事件名
func (m *Matcher) Match(name string) bool {
	if m.bounded && (name < m.min || name > m.max) {
		return false
	}
	return match.Match(name, m.pattern)
}

// Path 计算层级路径（最具体在前）
//
//	"a.b.c" → ["a.b.c", "a.b", "a"]
func Path(name string) []string {
	if name == "" {
		return nil
	}
	path := make([]string, 1, strings.Count(name, ".")+1)
	path[0] = name
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			path = append(path, name[:i])
		}
	}
	return path
}

// ValidateName 校验事件名或 pattern：非空，且不含空段（首尾 '.' 或 '..'）
func ValidateName(name string) error {
	if name == "" {
		return ErrEmptyEventName
	}
	if name[0] == '.' || name[len(name)-1] == '.' || strings.Contains(name, "..") {
		return ErrMalformedEventName
	}
	return nil
}
