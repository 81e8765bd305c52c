package compose

import (
	"fmt"

	"github.com/luckyjian/dgwatch/internal/history"
)

// TrendLines renders a run-log trend as display lines.
func TrendLines(t history.Trend) []string {
	lines := []string{fmt.Sprintf("历史错误统计: 最近检测到 %d 个错误", t.RecentErrors)}
	if t.SQLPlusErrors > 0 {
		lines = append(lines,
			fmt.Sprintf("环境问题: 检测到 %d 次Oracle客户端问题", t.SQLPlusErrors),
			"趋势分析: 建议优先解决Oracle客户端配置问题")
	}
	if t.ConnectionErrors > 0 {
		lines = append(lines,
			fmt.Sprintf("连接问题: 检测到 %d 次数据库连接问题", t.ConnectionErrors),
			"趋势分析: 建议检查网络连接稳定性")
	}
	switch t.Stability() {
	case history.Stable:
		lines = append(lines, "趋势分析: 系统运行稳定，无明显异常趋势")
	case history.Frequent:
		lines = append(lines, "趋势分析: 错误频率较高，建议深入排查")
	default:
		lines = append(lines, "趋势分析: 偶发性问题，建议持续监控")
	}
	switch {
	case t.SQLPlusErrors > t.ConnectionErrors:
		lines = append(lines, "预测建议: 主要问题为环境配置，解决后系统稳定性将显著提升")
	case t.ConnectionErrors > 0:
		lines = append(lines, "预测建议: 存在网络或数据库连接问题，需要网络团队协助")
	default:
		lines = append(lines, "预测建议: 系统整体稳定，建议保持当前监控频率")
	}
	return lines
}
