package orchestrator

import (
	"fmt"
	"math/rand"
	"strings"
)

// Per-persona template pools for the demo fallback. Personas without a pool
// fall back to the generic set.
var demoReplies = map[string][]string{
	"李白": {
		"诗酒人生，何其快哉！您的问题让我想起了一首诗...",
		"举杯邀明月，对影成三人。您提到的问题，让我深有感触。",
		"天生我材必有用，千金散尽还复来。关于您的疑问，我有些见解...",
	},
	"孙悟空": {
		"俺老孙火眼金睛，一眼就看出了问题所在！",
		"嘿嘿，这个问题难不倒俺老孙，让我来给你支个招！",
		"七十二变都用不上，这问题简单得很！",
	},
	"诸葛亮": {
		"运筹帷幄之中，决胜千里之外。您的问题需要仔细分析...",
		"凡事预则立，不预则废。让我为您详细分析一下...",
		"知己知彼，百战不殆。关于您的问题，我有以下建议...",
	},
	"林黛玉": {
		"花谢花飞花满天，红消香断有谁怜？您的问题触动了我的心弦...",
		"一朝春尽红颜老，花落人亡两不知。您提到的情况，我深有体会...",
		"质本洁来还洁去，强于污淖陷渠沟。关于您的疑问，我想说...",
	},
}

var genericDemoReplies = []string{
	"作为%s，我理解您的问题，让我来为您分析一下...",
	"根据我的专业知识和经验，我认为这个问题可以这样看待...",
	"这是一个很有趣的问题！基于我的理解，我建议...",
	"您提出了一个很好的问题，让我结合我的专长来回答...",
}

// demoReply picks a templated reply for the role, uniformly at random.
func demoReply(roleName string) string {
	if pool, ok := demoReplies[roleName]; ok {
		return pool[rand.Intn(len(pool))]
	}
	pick := genericDemoReplies[rand.Intn(len(genericDemoReplies))]
	if strings.Contains(pick, "%s") {
		return fmt.Sprintf(pick, roleName)
	}
	return pick
}
