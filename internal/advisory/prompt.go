package advisory

import (
	"fmt"
	"strings"
)

func BuildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("أنت خبير تغذية مجترات (أبقار وجاموس) تراجع عليقة مركزة لمربي.\n")
	fmt.Fprintf(&b, "الحيوان: %s، الغرض: %s، الوزن الحالي: %.0f كجم.\n", req.Animal, req.Purpose, req.WeightKg)
	if req.MilkKg > 0 {
		fmt.Fprintf(&b, "إنتاج اللبن: %.1f لتر/يوم.\n", req.MilkKg)
	}
	if req.ProteinTarget > 0 {
		fmt.Fprintf(&b, "البروتين المستهدف: %.0f%%.\n", req.ProteinTarget)
	}

	b.WriteString("\nمكونات الخلطة لكل 1000 كجم:\n")
	for _, name := range req.Distribution.Names() {
		fmt.Fprintf(&b, "- %s: %.1f كجم\n", name, req.Distribution[name])
	}

	b.WriteString("\nالتحليل الحالي:\n")
	fmt.Fprintf(&b, "- البروتين الخام: %.1f%%\n", req.Profile.Protein)
	fmt.Fprintf(&b, "- الطاقة (TDN): %.1f%%\n", req.Profile.TDN)
	fmt.Fprintf(&b, "- الألياف: %.1f%%\n", req.Profile.Fiber)
	fmt.Fprintf(&b, "- الدهون: %.1f%%\n", req.Profile.Fat)

	b.WriteString("\nالمطلوب:\n")
	b.WriteString("1. علّق على العليقة بلهجة مصرية ريفية مهنية وودودة.\n")
	b.WriteString("2. لو العليقة غير متوازنة اقترح توزيعاً كاملاً جديداً (suggestedWeightsList) مجموعه 1000 كجم بالضبط.\n")
	fmt.Fprintf(&b, "3. يمكنك إضافة خامات من هذه القائمة فقط عند الحاجة: [%s]، واذكرها في addedIngredients.\n", strings.Join(req.Ingredients, "، "))
	return b.String()
}
