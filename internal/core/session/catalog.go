package session

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// 英文文案即消息键，这里只登记等级名称与土耳其语翻译
func init() {
	for k, v := range map[string]string{
		string(LevelBeginner):     "Beginner",
		string(LevelIntermediate): "Intermediate",
		string(LevelAdvanced):     "Advanced",
		string(LevelExpert):       "Expert",
		string(LevelMaster):       "Master",
	} {
		_ = message.SetString(language.English, k, v)
	}

	for k, v := range map[string]string{
		string(LevelBeginner):     "Başlangıç",
		string(LevelIntermediate): "Orta",
		string(LevelAdvanced):     "İleri",
		string(LevelExpert):       "Uzman",
		string(LevelMaster):       "Usta",

		"Not enough data yet. Complete more sessions.": "Henüz yeterli veri yok. Daha fazla oturum tamamlayın.",
		"Note recognition": "Not tanıma",
		"Timing":           "Zamanlama",
		"High accuracy":    "Yüksek doğruluk",
		"Excellent timing": "Mükemmel zamanlama",

		"Accuracy is very low. Start with slower songs and focus.": "Doğruluk çok düşük. Daha yavaş parçalarla başlayın ve odaklanın.",
		"Watch first to memorise the note positions.":              "Not pozisyonlarını ezberlemek için önce sadece izleyin.",
		"Practise to raise accuracy. Target: 70%%+":                "Doğruluğu artırmak için pratik yapın. Hedef: %%70+",
		"Check the timing offset setting.":                         "Timing offset ayarını kontrol edin.",
		"Good progress! You can try harder songs.":                 "İyi ilerleme! Daha zorlu parçaları deneyebilirsiniz.",
		"Focus on keeping combos.":                                 "Combo'ları korumaya odaklanın.",
		"Excellent performance! Increase speed and complexity.":    "Mükemmel performans! Hız ve karmaşıklığı artırın.",
		"You are ready for hard modes.":                            "Zor modlara geçmeye hazırsınız.",
		"Great! You are at master level!":                          "Harika! Usta seviyesindesiniz!",
		"Test yourself in expert modes.":                           "Expert modlarda kendinizi test edin.",

		"Timing error is high. Run a calibration.":      "Zamanlama hatası yüksek. Kalibrasyon yapın.",
		"Tune the settings to reduce system latency.":   "Sistem gecikmesini azaltmak için ayarları optimize edin.",
		"Timing is slightly late. Adjust the offset.":   "Zamanlama biraz geç. Offset değerini ayarlayın.",
		"Perfect timing precision!":                     "Mükemmel zamanlama hassasiyeti!",
		"Beginner: do basic rhythm exercises.":          "Başlangıç seviyesi: Temel ritim egzersizleri yapın.",
		"Start with easy songs and raise the tempo.":    "Kolay şarkılarla başlayın ve tempo artırın.",
		"Intermediate: try different pattern types.":    "Orta seviye: Farklı pattern türlerini deneyin.",
		"Practise at various BPMs.":                     "Çeşitli BPM'lerde pratik yapın.",
		"Advanced: focus on complex combinations.":      "İleri seviye: Karmaşık kombinasyonlara odaklanın.",
		"Pay attention to details for perfection.":      "Mükemmellik için detaylara dikkat edin.",
		"Master: practise at least 30 minutes every day.": "Usta seviye: Her gün en az 30 dakika pratik yapın.",
		"Consider joining tournaments!":                 "Turnuvalara katılmayı düşünün!",
		"Weak areas: %s":                                "Zayıf alanlar: %s",
		"Practise these areas specifically.":            "Bu alanlarda özel pratik yapın.",

		"Start with slow songs (60-80 BPM)":    "Yavaş tempo şarkılarla başlayın (60-80 BPM)",
		"Practise 15-20 minutes every day":     "Her gün 15-20 dakika pratik yapın",
		"Focus on single column notes":         "Tek sütun notlarına odaklanın",
		"Learn note positions visually":        "Not pozisyonlarını görsel olarak öğrenin",
		"Use a metronome to build rhythm":      "Metronom kullanarak ritim hissini geliştirin",
		"Try medium tempo songs (80-120 BPM)":  "Orta tempo şarkılar deneyin (80-120 BPM)",
		"Practise two-note combinations":       "İki notlu kombinasyonları çalışın",
		"Learn different pattern types":        "Farklı pattern türlerini öğrenin",
		"Focus on keeping combos":              "Combo'ları korumaya odaklanın",
		"Practise 30 minutes daily":            "Günlük 30 dakika pratik yapın",
		"Fast tempo songs (120-160 BPM)":       "Hızlı tempo şarkılar (120-160 BPM)",
		"Complex chord combinations":           "Karmaşık chord kombinasyonları",
		"Build speed in stream sections":       "Stream section'larda hız geliştirin",
		"Try different difficulty levels":      "Farklı zorluk seviyeleri deneyin",
		"45+ minutes of intense practice":      "45+ dakika yoğun pratik",
		"Complete the hardest songs":           "En zorlu şarkıları tamamlayın",
		"Aim for full combo":                   "Full combo hedefleyin",
		"Compete in tournament mode":           "Turnuva modunda yarışın",
		"Break your own records":               "Kendi record'larınızı kırın",
		"Join community events":                "Topluluk etkinliklerine katılın",
	} {
		_ = message.SetString(language.Turkish, k, v)
	}
}
