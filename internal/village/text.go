package village

import "strings"

// 文档注释：自由文本归一化与两种“存在”判定
// 背景：数据服务中的分类字段为人工录入文本（如 "Ada "、" ADA"、"sudah ada"），分类前统一去空白并转小写。
// 约束：灾害字段使用严格相等（Exact），信息系统/信号等字段使用子串包含（Contains）；两者不可合并，否则分类结果会改变。
func Norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Present 是灾害类字段“存在”的规范值
const Present = "ada"

// Exact：归一化后严格等于关键字
func Exact(s, kw string) bool { return Norm(s) == kw }

// Contains：归一化后包含关键字
func Contains(s, kw string) bool { return strings.Contains(Norm(s), kw) }

// ContainsAny：归一化后包含任一关键字
func ContainsAny(s string, kws ...string) bool {
	n := Norm(s)
	for _, kw := range kws {
		if strings.Contains(n, kw) {
			return true
		}
	}
	return false
}

// FirstTag：逗号分隔标签的第一项（去空白），为空时返回 fallback
func FirstTag(s, fallback string) string {
	if s == "" {
		return fallback
	}
	t := strings.TrimSpace(strings.SplitN(s, ",", 2)[0])
	if t == "" {
		return fallback
	}
	return t
}

func (e Economy) Present() bool        { return e != Economy{} }
func (d Digital) Present() bool        { return d != Digital{} }
func (i Infrastructure) Present() bool { return i != Infrastructure{} }
