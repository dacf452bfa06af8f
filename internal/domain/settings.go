package domain

import "time"

// ============================================================
// Settings — configuration entities referenced by clients
// ============================================================

// Product is a sellable plan referenced by name from client records.
type Product struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	DefaultValue float64   `json:"defaultValue"`
	Description  string    `json:"description"`
	Active       bool      `json:"active"`
	ClientsUsing int       `json:"clientsUsing"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Niche is a market segment referenced by name from client records.
type Niche struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Emoji        string `json:"emoji"`
	Color        string `json:"color"`
	Active       bool   `json:"active"`
	ClientsUsing int    `json:"clientsUsing"`
}

// PaymentMethodSetting is a configured payment method.
type PaymentMethodSetting struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Icon         string `json:"icon"`
	Observation  string `json:"observation"`
	Active       bool   `json:"active"`
	ClientsUsing int    `json:"clientsUsing"`
}

// CompanyInfo is the operator's own company profile.
type CompanyInfo struct {
	Name    string `json:"name"`
	CNPJ    string `json:"cnpj"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Logo    string `json:"logo"`
}

// Integration holds connection data for one automation platform.
type Integration struct {
	Connected  bool   `json:"connected"`
	APIURL     string `json:"apiUrl,omitempty"`
	APIKey     string `json:"apiKey,omitempty"`
	WebhookURL string `json:"webhookUrl,omitempty"`
	Instance   string `json:"instance,omitempty"`
}

// Integration keys accepted by the settings API.
const (
	IntegrationN8N          = "n8n"
	IntegrationMake         = "make"
	IntegrationZapier       = "zapier"
	IntegrationEvolutionAPI = "evolutionApi"
)

// Integrations groups all supported automation platforms.
type Integrations struct {
	N8N          Integration `json:"n8n"`
	Make         Integration `json:"make"`
	Zapier       Integration `json:"zapier"`
	EvolutionAPI Integration `json:"evolutionApi"`
}

// Settings is the full configuration blob, persisted as a single JSON value
// and rewritten in full on every mutation.
type Settings struct {
	Products       []Product              `json:"products"`
	Niches         []Niche                `json:"niches"`
	PaymentMethods []PaymentMethodSetting `json:"paymentMethods"`
	CompanyInfo    CompanyInfo            `json:"companyInfo"`
	Integrations   Integrations           `json:"integrations"`
}

// ============================================================
// Sparse patches for settings mutations
// ============================================================

type ProductPatch struct {
	Name         *string  `json:"name,omitempty"`
	DefaultValue *float64 `json:"defaultValue,omitempty"`
	Description  *string  `json:"description,omitempty"`
	Active       *bool    `json:"active,omitempty"`
}

type NichePatch struct {
	Name   *string `json:"name,omitempty"`
	Emoji  *string `json:"emoji,omitempty"`
	Color  *string `json:"color,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

type PaymentMethodPatch struct {
	Name        *string `json:"name,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	Observation *string `json:"observation,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

type CompanyInfoPatch struct {
	Name    *string `json:"name,omitempty"`
	CNPJ    *string `json:"cnpj,omitempty"`
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
	Logo    *string `json:"logo,omitempty"`
}

type IntegrationPatch struct {
	Connected  *bool   `json:"connected,omitempty"`
	APIURL     *string `json:"apiUrl,omitempty"`
	APIKey     *string `json:"apiKey,omitempty"`
	WebhookURL *string `json:"webhookUrl,omitempty"`
	Instance   *string `json:"instance,omitempty"`
}

// ============================================================
// Factory defaults (first run)
// ============================================================

// DefaultSettings seeds the configuration on first startup.
func DefaultSettings() *Settings {
	now := time.Now()
	return &Settings{
		Products: []Product{
			{ID: "1", Name: "Plano Starter", DefaultValue: 197, Description: "Plano básico ideal para pequenos negócios começando com automação", Active: true, CreatedAt: now},
			{ID: "2", Name: "Plano PRO", DefaultValue: 397, Description: "Plano completo com recursos avançados de IA e automação", Active: true, CreatedAt: now},
			{ID: "3", Name: "CompanyChat", DefaultValue: 297, Description: "Solução de chat inteligente com IA para atendimento ao cliente", Active: true, CreatedAt: now},
			{ID: "4", Name: "Personalizado", DefaultValue: 0, Description: "Plano customizado de acordo com as necessidades específicas do cliente", Active: true, CreatedAt: now},
		},
		Niches: []Niche{
			{ID: "1", Name: "Advocacia", Emoji: "⚖️", Color: "#00FF94", Active: true},
			{ID: "2", Name: "Academia", Emoji: "💪", Color: "#00FF94", Active: true},
			{ID: "3", Name: "Escola", Emoji: "📚", Color: "#00FF94", Active: true},
			{ID: "4", Name: "Marketing", Emoji: "📱", Color: "#00FF94", Active: true},
			{ID: "5", Name: "Saúde", Emoji: "❤️", Color: "#00FF94", Active: true},
			{ID: "6", Name: "Varejo", Emoji: "🛒", Color: "#00FF94", Active: true},
			{ID: "7", Name: "Serviços", Emoji: "🔧", Color: "#00FF94", Active: true},
			{ID: "8", Name: "Tecnologia", Emoji: "💻", Color: "#00FF94", Active: true},
			{ID: "9", Name: "Alimentação", Emoji: "🍔", Color: "#00FF94", Active: true},
			{ID: "10", Name: "Outro", Emoji: "📋", Color: "#00FF94", Active: true},
		},
		PaymentMethods: []PaymentMethodSetting{
			{ID: "1", Name: "PIX", Icon: "💚", Active: true},
			{ID: "2", Name: "Cartão de Crédito", Icon: "💳", Active: true},
			{ID: "3", Name: "Boleto", Icon: "📄", Active: true},
			{ID: "4", Name: "Transferência", Icon: "🏦", Active: true},
			{ID: "5", Name: "Dinheiro", Icon: "💵", Active: false},
		},
		CompanyInfo: CompanyInfo{
			Name:  "CompanyChat IA",
			Email: "contato@companychat.com.br",
		},
	}
}
