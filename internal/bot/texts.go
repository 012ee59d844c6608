package bot

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Menu button labels. They double as the route keys for private chats.
const (
	btnCallback     = "📲 Заказать обратный звонок"
	btnConsultation = "💬 Хочу консультацию"
	btnOrder        = "📤 Отправить заявку на расчет"
	btnServices     = "🔧 Услуги"
	btnInstallation = "⚙️ Монтаж оборудования"
	btnRepair       = "🔧 Ремонт оборудования"
	btnPrices       = "🧾 Стоимость"
	btnAbout        = "👨‍🔧 О нас"
	btnProjects     = "✅ Проекты"
	btnHome         = "В начало"

	btnPipesCleaning  = "Сервис котлов и труб"
	btnWarmFloor      = "Монтаж тёплого пола"
	btnPipesRouting   = "Водопроводная разводка"
	btnHeaterInstall  = "Установка котлов и бойлеров"
	btnExportUsers    = "Выгрузить всех пользователей"
	btnExportClients  = "Выгрузить всех клиентов"
	btnExportGuests   = "Выгрузить всех гостей"
)

func btnExportInactive(days int) string {
	return fmt.Sprintf("Клиенты: Обратная связь %d дней", days)
}

const (
	textUnexpectedError = "Произошла непредвиденная ошибка. Попробуйте позже."
	textUnknownForm     = "Неизвестный тип формы. Пожалуйста, попробуйте снова."
	textBadFormData     = "Ошибка обработки данных. Попробуйте снова."
	textNoActiveRequest = "У вас нет активной заявки. Сначала заполните форму."
	textRequestSent     = "✅ Ваша заявка передана администратору."
	textNoClients       = "Клиентов нет"
	textNotSpecified    = "не указано"
	textNoUsername      = "нет username"
	textNoPhone         = "Номера нет"
)

const textServices = "*Услуги:*\n" +
	"*Ремонт и установка котлов, газового оборудования:*\n" +
	"Меняем, устанавливаем и ремонтируем газовые котлы, колонки, бойлеры и другое газовое оборудование. " +
	"_Гарантируем безопасную и надёжную работу оборудования._\n\n" +
	"*Системы отопления:*\n" +
	"Проектируем и монтируем системы отопления с нуля. " +
	"_Эффективно, долговечно, с учётом всех норм._\n\n" +
	"*Сантехника:*\n" +
	"Устанавливаем и ремонтируем водоснабжение, трубы и сантехническое оборудование. " +
	"_Работа без протечек и с долгим сроком службы._\n\n" +
	"*Если хотите получить консультацию или точную оценку, нажмите кнопку «Хочу консультацию».*"

const textInstallation = "*Монтаж оборудования:*\n\n" +
	"Меняем, устанавливаем газовые котлы, колонки, бойлеры и другое газовое оборудование.\n" +
	"_Гарантируем безопасную и надёжную работу оборудования._\n\n" +
	"*Системы отопления:*\n" +
	"Проектируем и монтируем системы отопления с нуля.\n" +
	"_Эффективно, долговечно, с учётом всех норм._\n\n" +
	"*Сантехника:*\n" +
	"Устанавливаем и ремонтируем водоснабжение, трубы и сантехническое оборудование.\n" +
	"_Работа без протечек и с долгим сроком службы._\n\n" +
	"*Если хотите получить консультацию или точную оценку, нажмите кнопку «Хочу консультацию».*"

const textRepair = "*Ремонт и обслуживание оборудования:*\n\n" +
	"Мы выполняем полный спектр работ по ремонту и техническому обслуживанию газовых котлов, колонок и другого оборудования:\n" +
	"- Ежегодное плановое техническое обслуживание для безопасной и надежной работы.\n" +
	"- Диагностика неисправностей и оперативный ремонт всех видов оборудования.\n" +
	"- Настройка котлов при первом пуске для эффективной работы.\n" +
	"- Консультации и помощь в подборе котла на замену по вашим потребностям.\n" +
	"- Сопровождение при покупке оборудования и установка при необходимости.\n\n" +
	"*Наши сервисные мастера всегда готовы помочь:*\n" +
	"Андрей: +7 000 000 00 00\n" +
	"Павел: +7 000 000 00 00\n\n" +
	"_Обеспечиваем долгую и безопасную работу оборудования, избавляя вас от неожиданных поломок._"

const textPrices = "💰 *Стоимость услуг*\n\n" +
	"Мы занимаемся заменой и установкой газовых котлов, колонок, бойлеров, " +
	"монтажом систем отопления и водоснабжения с нуля, а также ремонтом сантехники.\n\n" +
	"Каждый проект уникален, поэтому стоимость рассчитывается индивидуально " +
	"в зависимости от ваших потребностей и условий.\n\n" +
	"Вы можете описать свою проблему или прислать фото — мы внимательно рассмотрим " +
	"заявку и свяжемся с вами для точного расчета.\n\n" +
	"*👇Для этого воспользуйтесь кнопкой 'Отправить заявку на расчет' ниже.*\n" +
	"Заполните форму обратной связи и отправьте файл"

const textAbout = "*О нас*\n\n" +
	"Мы специализируемся на инженерных системах, которые делают дом и бизнес комфортными и безопасными. " +
	"С конца 90-х годов устанавливаем и меняем газовые котлы, колонки и бойлеры, проектируем и монтируем " +
	"системы отопления и водоснабжения под ключ.\n\n" +
	"Работаем как с частными клиентами, так и с организациями. Для одних это гарантия тёплого и надёжного дома, " +
	"для других — бесперебойная работа объекта без простоя и лишних затрат.\n\n" +
	"Наша команда не только монтирует новое оборудование, но и продлевает срок службы существующего: " +
	"промываем системы отопления и водоснабжения, чистим бойлеры, устраняем засоры и повышаем эффективность работы.\n\n" +
	"Опыт более 25 лет — это умение решать задачи разного масштаба: от квартиры и коттеджа до " +
	"производственного помещения. Мы знаем, что от инженерных сетей зависит каждый день жизни, " +
	"и поэтому делаем их максимально надёжными, экономичными и простыми в обслуживании."

const textProjects = "*Вы можете ознакомиться с нашими проектами ниже, нажимая кнопки.*\n\n" +
	"Если у вас появились вопросы - нажмите на кнопку 'Хочу консультацию' и мы подробно на них ответим"

const captionPipesCleaning = "*Накипь, ржавчина, мусор — всё, что съедает ваш котёл, бойлер и трубы изнутри.*\n\n" +
	"Мы вычищаем — до состояния 'как новый'.\n" +
	"🛠️ Чистка котлов, бойлеров, труб — быстро и качественно.\n" +
	"👉 Не ждите аварии! Проверьте своё оборудование уже сегодня.\n" +
	"📩 Напишите — сделаем чистку за 1 день.\n\n"

const captionWarmFloor = "🔥 *Теплый пол — комфорт и экономия круглый год*\n\n" +
	"*Холодные полы, сквозняки, высокая влажность — всё это делает ваш дом неудобным.*\n\n" +
	"Мы укладываем тёплые полы — ровно, надёжно, безопасно.\n" +
	"🛠️ Монтаж теплых полов под любые покрытия: плитка, ламинат, паркет.\n" +
	"⚡ Быстрое подключение к системе отопления и управление через терморегулятор.\n" +
	"👉 Забудьте про холод и сырость — сделайте дом комфортным уже сегодня.\n" +
	"📩 Свяжитесь с нами — проконсультируем и рассчитаем стоимость за 1 день."

const captionPipesRouting = "🔧 *Профессиональная разводка труб — залог надежного отопления*\n\n" +
	"*Хаотичная прокладка и некачественные соединения приводят к утечкам, шуму и поломкам.*\n\n" +
	"Мы делаем аккуратную, продуманную разводку — надёжно, эстетично, безопасно.\n" +
	"🛠️ Монтаж труб любой сложности, под ключ, с гарантией на работу.\n" +
	"⚡ Оптимальная схема для котельного оборудования и бойлеров.\n" +
	"👉 Забудьте про проблемы с отоплением — всё будет работать идеально.\n" +
	"📩 Свяжитесь с нами — проект и монтаж за 1 день."

const captionHeaterInstall = "🔥 *Установка котлов и бойлеров — надёжное тепло в доме*\n\n" +
	"*Неправильная установка оборудования приводит к поломкам, авариям и лишним расходам.*\n\n" +
	"Мы устанавливаем котлы и бойлеры — точно, безопасно, с гарантией.\n" +
	"🛠️ Подключение к системе отопления и водоснабжения, настройка и пуск под ключ.\n" +
	"⚡ Оптимальная работа и долгий срок службы оборудования.\n" +
	"👉 Забудьте про перебои с горячей водой и отоплением — всё будет работать без проблем.\n" +
	"📩 Свяжитесь с нами — монтаж и настройка за 1 день."

const textGroupIntro = "Привет. Этот чат получает уведомления о новых заказах, обратных звонках и заявках.\n" +
	"Здесь можно:\n" +
	"- Смотреть и выгружать клиентов по статусу или условиям\n" +
	"- Получать уведомления о новых заявках и заказах\n" +
	"- Работать с базой данных клиентов через команды бота\n\n" +
	"Доступные команды:\n"

const textCommands = "/c — Список команд\n" +
	"/start_group — Запуск\n" +
	"/all_users — Выгрузить всех пользователей из базы\n" +
	"/guests — Выгрузить всех посетителей из базы\n" +
	"/clients — Выгрузить всех клиентов из базы\n" +
	"/inactive — Выгрузить неактивных клиентов"

func greeting(name string) string {
	return fmt.Sprintf("👋Добрый день, %s!\n\n", name) +
		"Мы помогаем с заменой и установкой газовых котлов, колонок, бойлеров, " +
		"а также с монтажом систем отопления и водоснабжения с нуля.\n\n" +
		"📞Звонки принимаются с 8:00 до 10:00.\n" +
		"В остальное время мы занимаемся выполнением заказов, чтобы всё было сделано качественно и в срок.\n\n" +
		"Вы можете быстро узнать о наших услугах или заказать обратный звонок — " +
		"с вами свяжутся в ближайшее время.\n\n" +
		"⬇️Для получения информации воспользуйтесь кнопками ниже."
}

func callbackReport(name, phone, when, topic, username string) string {
	return fmt.Sprintf("🔔 Заказан ОБРАТНЫЙ ЗВОНОК от %s\n"+
		"на номер телефона %s\n"+
		"удобное время звонка: %s\n"+
		"тема звонка: \"%s\"\n\n"+
		"Для связи в чате @%s\n\n"+
		"❓ Напомнить позже?",
		capitalize(name), phone, when, capitalize(topic), username)
}

func callbackThanks(firstName string) string {
	return fmt.Sprintf("%s, спасибо!\n"+
		"📨 Ваша заявка на обратный звонок передана!\n"+
		"С вами свяжутся наши специалисты в удобное время.", firstName)
}

// problemSaved is sent with Markdown, so user input is escaped.
func problemSaved(name, phone, problem string) string {
	esc := func(s string) string { return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s) }
	return fmt.Sprintf("Заявка сохранена:\nИмя: %s\nТелефон: %s\nОписание проблемы: %s\n\n", esc(name), esc(phone), esc(problem)) +
		"*📷 Пришлите одно фото или видео вашей проблемы.*\n" +
		"*Или можете записать 🎙️голосовое или 📹видео-сообщение.*"
}

func problemReport(name, phone, problem, username string) string {
	return fmt.Sprintf("🔔 Новая заявка от %s\n"+
		"Телефон: %s\n"+
		"Проблема: %s\n\n"+
		"Для связи: @%s\n\n"+
		"❓ Напомнить позже?",
		capitalize(name), phone, problem, username)
}

func inactiveHeader(days int) string {
	return fmt.Sprintf("Клиенты, которые воспользовались функцией обратной связи %d дней назад:\n\n", days)
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// splitMessage cuts text at line breaks into parts of at most limit runes.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	var (
		parts []string
		cur   strings.Builder
		n     int
	)
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
			n = 0
		}
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		l := utf8.RuneCountInString(line)
		if n+l > limit {
			flush()
		}
		for l > limit {
			runes := []rune(line)
			parts = append(parts, string(runes[:limit]))
			line = string(runes[limit:])
			l -= limit
		}
		cur.WriteString(line)
		n += l
	}
	flush()
	return parts
}
