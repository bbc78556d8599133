package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"stocksignal/internal/models"
)

const bandarSystem = "Kamu adalah investigator bandarmologi saham Indonesia. Jawab hanya dengan JSON valid."

// Bandar statuses the model may report.
const (
	StatusDistribusi = "DISTRIBUSI"
	StatusAkumulasi  = "AKUMULASI"
	StatusMarkDown   = "MARK-DOWN"
	StatusChurning   = "CHURNING"
)

// BandarAgent reads broker flow forensics.
type BandarAgent struct {
	BaseAgent
}

// NewBandarAgent creates a new bandarmology agent.
func NewBandarAgent(llm LLMClient, logger zerolog.Logger) *BandarAgent {
	return &BandarAgent{BaseAgent: NewBaseAgent(NameBandar, llm, logger)}
}

// Analyze asks the model to classify today's broker flow. Without a broker
// summary the volume based proxy from the snapshot is reported instead.
func (a *BandarAgent) Analyze(ctx context.Context, req Request) (models.AgentOpinion, error) {
	if req.Bandar == nil {
		return ProxyBandarOpinion(req.Snapshot), nil
	}
	var resp opinionResponse
	if err := a.ask(ctx, bandarSystem, BandarPrompt(req), &resp); err != nil {
		return NeutralOpinion(a.name, err), err
	}
	op := resp.opinion(a.name)
	op.Status = strings.ToUpper(op.Status)
	return op, nil
}

// ProxyBandarOpinion derives an opinion from volume and money flow alone.
func ProxyBandarOpinion(s *models.TechnicalSnapshot) models.AgentOpinion {
	if s == nil {
		return NeutralOpinion(NameBandar, nil)
	}
	return models.AgentOpinion{
		Agent:          NameBandar,
		SentimentScore: ClampScore(s.BandarScore),
		Status:         s.BandarStatus,
		Analysis:       fmt.Sprintf("Data broker summary tidak tersedia. Proxy volume: %s (%s), rasio volume %.2fx.", s.BandarStatus, s.BandarAction, s.VolRatio),
	}
}

// BandarPrompt renders the bandarmology agent prompt.
func BandarPrompt(req Request) string {
	bc := req.Bandar
	var sb strings.Builder

	sb.WriteString("ROLE: Investigator Bandarmologi Profesional (Market Flow Detective)\n")
	fmt.Fprintf(&sb, "SAHAM: %s\n\n", req.Ticker)

	sb.WriteString("[SUMMARY HARI INI]\n")
	sb.WriteString(bc.TodaySummary)
	sb.WriteString("\n\n")

	sb.WriteString("[JEJAK PENJUAL UTAMA (TOP SELLER)]\n")
	fmt.Fprintf(&sb, "- Kode: %s\n", bc.TopSeller)
	fmt.Fprintf(&sb, "- Histori Posisi: %s\n", bc.SellerHistNet)
	fmt.Fprintf(&sb, "- Avg Price Jual Hari Ini: %.0f\n\n", bc.SellerAvgPrice)

	sb.WriteString("[DATA TAMBAHAN]\n")
	fmt.Fprintf(&sb, "- Harga Penutupan: %.0f\n", bc.Close)
	fmt.Fprintf(&sb, "- VWAP: %.0f\n", bc.VWAP)
	fmt.Fprintf(&sb, "- Perubahan Harga: %+.2f%%\n", bc.PriceChange)
	fmt.Fprintf(&sb, "- Avg Price Top 1 Buyer: %.0f\n", bc.Top1BuyPrice)
	if req.Foreign != nil {
		fmt.Fprintf(&sb, "- Foreign Flow: %s (1D %.0f, 5D %.0f)\n", req.Foreign.Status, req.Foreign.Net1D, req.Foreign.Net5D)
	}

	sb.WriteString(`
LOGIKA INVESTIGASI:
A. Jika Top Seller jualan MASIF hari ini TETAPI histori sebelumnya TIDAK menunjukkan akumulasi (Net Buy kecil/nol), itu MEMBUANG BARANG LAMA (barang IPO/founder/treasury). Sangat bearish.
B. Transfer of wealth: barang berpindah dari institusi ke broker ritel (YP, PD, XL, XC, KK, CC, CP, EP) adalah tanda distribusi; sebaliknya akumulasi.
C. Churning: volume beli dan jual top broker berselisih kurang dari 10% dan harga berubah kurang dari 2%, tandai ARTIFICIAL VOLUME.
D. Harga turun, Top Buyer institusi/asing, dan Avg Price Buyer <= Harga Penutupan: ABSORPTION / BUY ON WEAKNESS (mark-down akumulasi).
E. Avg price Top 1 Buyer di atas VWAP: AGGRESSIVE ACCUMULATION (HK).

REFERENSI BROKER:
- RITEL: YP, PD, XL, XC, KK, CC, CP, EP
- HYBRID: MG

OUTPUT JSON:
{
  "sentiment_score": 0-100,
  "status": "DISTRIBUSI | AKUMULASI | MARK-DOWN | CHURNING",
  "analysis": "temuan utama maksimal 120 kata",
  "warning": "peringatan untuk trader ritel"
}`)
	return sb.String()
}
