package rules

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/gaurav-prasanna/mailmd/core"
	"github.com/gaurav-prasanna/mailmd/core/dom"
)

func fencedAs(lang string) core.ReplacementFunc {
	return func(content string, _ *dom.Node, opts core.Options) string {
		fence := opts.Fence
		if fence == "" {
			fence = "```"
		}
		return "\n" + fence + lang + "\n" + strings.Trim(content, "\n") + "\n" + fence + "\n"
	}
}

var presets = map[string][]core.CustomRule{
	"highlight": {
		{Selector: "mark", Template: "==${content}==", Priority: 1},
		{Selector: ".highlight", Template: "**${content}**", Priority: 1},
		{Selector: ".warning", Template: "⚠️ ${content}", Priority: 1},
		{Selector: ".info", Template: "ℹ️ ${content}", Priority: 1},
		{Selector: ".success", Template: "✅ ${content}", Priority: 1},
		{Selector: ".error", Template: "❌ ${content}", Priority: 1},
	},
	"code": {
		{Selector: ".language-javascript", Func: fencedAs("javascript"), Priority: 2},
		{Selector: ".language-typescript", Func: fencedAs("typescript"), Priority: 2},
		{Selector: ".language-python", Func: fencedAs("python"), Priority: 2},
		{Selector: ".language-go", Func: fencedAs("go"), Priority: 2},
		{Selector: ".inline-code", Template: "`${content}`", Priority: 1},
	},
	"email": {
		{Selector: ".email-header", Template: "📧 **Email Header**\n\n${content}\n\n---\n", Priority: 3},
		{Selector: ".email-attachment", Func: attachment, Priority: 2},
		{Selector: ".email-forward", Template: "\n📨 **Forwarded Message**\n\n${content}\n", Priority: 2},
		{Selector: ".email-reply", Template: "\n↩️ **Reply**\n\n${content}\n", Priority: 2},
		{Selector: ".confidential", Template: "🔒 **CONFIDENTIAL**: ${content}", Priority: 3},
	},
	"document": {
		{Selector: ".footnote", Func: footnote, Priority: 1},
		{Selector: ".footnote-ref", Func: footnoteRef, Priority: 1},
		{Selector: ".bibliography", Template: "\n## References\n\n${content}\n", Priority: 2},
		{Selector: ".author", Template: "**Author**: ${content}", Priority: 1},
		{Selector: ".date", Template: "**Date**: ${content}", Priority: 1},
	},
	"layout": {
		{Selector: ".sidebar", Func: sidebar, Priority: 1},
		{Selector: ".callout", Template: "\n💡 **Note**\n\n${content}\n", Priority: 1},
		{Selector: ".alert", Func: alert, Priority: 2},
		{Selector: ".card", Func: card, Priority: 1},
	},
}

// Preset returns a copy of a predefined rule set.
func Preset(name string) ([]core.CustomRule, bool) {
	set, ok := presets[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return append([]core.CustomRule(nil), set...), true
}

// PresetNames lists the predefined rule sets.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func attachment(_ string, el *dom.Node, _ core.Options) string {
	name := el.AttrOr("data-filename", "attachment")
	if size := el.AttrOr("data-size", ""); size != "" {
		return fmt.Sprintf("📎 **%s** (%s)\n", name, size)
	}
	return fmt.Sprintf("📎 **%s**\n", name)
}

func footnote(content string, el *dom.Node, _ core.Options) string {
	id := el.AttrOr("id", "")
	if id == "" {
		h := fnv.New32a()
		h.Write([]byte(content))
		id = fmt.Sprintf("%x", h.Sum32())
	}
	return fmt.Sprintf("[^%s]: %s\n", id, strings.TrimSpace(content))
}

func footnoteRef(_ string, el *dom.Node, _ core.Options) string {
	return "[^" + strings.TrimPrefix(el.AttrOr("href", ""), "#") + "]"
}

func sidebar(content string, _ *dom.Node, _ core.Options) string {
	lines := strings.Split(strings.TrimSpace(content), "\n")
	for i, l := range lines {
		lines[i] = "> " + l
	}
	return "\n**Sidebar**\n" + strings.Join(lines, "\n") + "\n"
}

var alertIcons = map[string]string{
	"info":    "ℹ️",
	"warning": "⚠️",
	"error":   "❌",
	"success": "✅",
}

func alert(content string, el *dom.Node, _ core.Options) string {
	icon, ok := alertIcons[el.AttrOr("data-type", "info")]
	if !ok {
		icon = alertIcons["info"]
	}
	return fmt.Sprintf("\n%s **Alert**\n\n%s\n", icon, content)
}

func card(content string, el *dom.Node, _ core.Options) string {
	if title := el.AttrOr("data-title", ""); title != "" {
		return fmt.Sprintf("\n📋 **%s**\n\n%s\n", title, content)
	}
	return "\n📋 " + content + "\n"
}
