package model

import "fmt"

// Topic は記事のトピック。閉じた列挙で、空文字は「すべて」を表す。
type Topic string

const (
	TopicAll           Topic = ""
	TopicPolitics      Topic = "politics"
	TopicEconomics     Topic = "economics"
	TopicTechnology    Topic = "technology"
	TopicScience       Topic = "science"
	TopicSports        Topic = "sports"
	TopicCulture       Topic = "culture"
	TopicHealth        Topic = "health"
	TopicEducation     Topic = "education"
	TopicEnvironment   Topic = "environment"
	TopicSociety       Topic = "society"
	TopicWar           Topic = "war"
	TopicInternational Topic = "international"
	TopicBusiness      Topic = "business"
	TopicFinance       Topic = "finance"
	TopicEntertainment Topic = "entertainment"
	TopicTravel        Topic = "travel"
	TopicFood          Topic = "food"
	TopicFashion       Topic = "fashion"
	TopicAuto          Topic = "auto"
	TopicRealEstate    Topic = "real_estate"
	TopicOther         Topic = "other"
)

// AllTopics は選択可能な全トピック（「すべて」を除く）。
var AllTopics = []Topic{
	TopicPolitics, TopicEconomics, TopicTechnology, TopicScience,
	TopicSports, TopicCulture, TopicHealth, TopicEducation,
	TopicEnvironment, TopicSociety, TopicWar, TopicInternational,
	TopicBusiness, TopicFinance, TopicEntertainment, TopicTravel,
	TopicFood, TopicFashion, TopicAuto, TopicRealEstate, TopicOther,
}

// ParseTopic は文字列をトピックに変換する。空文字は TopicAll。
func ParseTopic(s string) (Topic, error) {
	t := Topic(s)
	if t == TopicAll || t.Label() != "" {
		return t, nil
	}
	return "", fmt.Errorf("unknown topic: %q", s)
}

// Label はトピックの表示名を返す。未知の値には空文字を返す。
// トピックを追加したらここと Color を必ず更新すること（topic_test.go が全件を検査する）。
func (t Topic) Label() string {
	switch t {
	case TopicPolitics:
		return "Политика"
	case TopicEconomics:
		return "Экономика"
	case TopicTechnology:
		return "Технологии"
	case TopicScience:
		return "Наука"
	case TopicSports:
		return "Спорт"
	case TopicCulture:
		return "Культура"
	case TopicHealth:
		return "Здоровье"
	case TopicEducation:
		return "Образование"
	case TopicEnvironment:
		return "Экология"
	case TopicSociety:
		return "Общество"
	case TopicWar:
		return "Война"
	case TopicInternational:
		return "Международные отношения"
	case TopicBusiness:
		return "Бизнес"
	case TopicFinance:
		return "Финансы"
	case TopicEntertainment:
		return "Развлечения"
	case TopicTravel:
		return "Путешествия"
	case TopicFood:
		return "Еда"
	case TopicFashion:
		return "Мода"
	case TopicAuto:
		return "Автомобили"
	case TopicRealEstate:
		return "Недвижимость"
	case TopicOther:
		return "Прочее"
	}
	return ""
}

// Color はトピックの表示用カラークラスを返す。
func (t Topic) Color() string {
	switch t {
	case TopicPolitics, TopicWar, TopicInternational:
		return "topic-politics"
	case TopicEconomics, TopicBusiness, TopicFinance:
		return "topic-economics"
	case TopicTechnology:
		return "topic-technology"
	case TopicScience:
		return "topic-science"
	case TopicSports, TopicCulture, TopicHealth, TopicEducation,
		TopicEnvironment, TopicSociety, TopicEntertainment, TopicTravel,
		TopicFood, TopicFashion, TopicAuto, TopicRealEstate, TopicOther:
		return "topic-other"
	}
	return ""
}
