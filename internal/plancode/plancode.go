// Package plancode сопоставляет коды тарифов платёжного шлюза с тарифами маркетплейса.
//
// Таблица одна на всё приложение: обработчики вебхуков, оформление подписки
// и сверка используют только её.
package plancode

import (
	"strings"

	"github.com/magabrotheeeer/buscaaqui/internal/models"
)

// aliases ключи приведены к нижнему регистру, пробелы и дефисы заменены на "_".
var aliases = map[string]string{
	"free":     models.PlanFree,
	"gratis":   models.PlanFree,
	"gratuito": models.PlanFree,

	"basic":      models.PlanBasic,
	"basico":     models.PlanBasic,
	"básico":     models.PlanBasic,
	"plan_basic": models.PlanBasic,

	"business":      models.PlanBusiness,
	"profissional":  models.PlanBusiness,
	"pro":           models.PlanBusiness,
	"plan_business": models.PlanBusiness,

	"business_plus":      models.PlanBusinessPlus,
	"businessplus":       models.PlanBusinessPlus,
	"empresarial":        models.PlanBusinessPlus,
	"premium":            models.PlanBusinessPlus,
	"plan_business_plus": models.PlanBusinessPlus,
}

// CheckoutCode код, который передаётся в шлюз как externalReference.
func CheckoutCode(slug string) string {
	return strings.ToUpper(slug)
}

// Resolve возвращает slug тарифа для кода шлюза.
// Неизвестный или пустой код даёт бесплатный тариф и known=false.
func Resolve(code string) (slug string, known bool) {
	slug, known = aliases[normalize(code)]
	if !known {
		return models.PlanFree, false
	}
	return slug, true
}

// Slugs возвращает все slug тарифов, на которые может указывать код.
func Slugs() []string {
	return []string{models.PlanFree, models.PlanBasic, models.PlanBusiness, models.PlanBusinessPlus}
}

func normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(code)
}
