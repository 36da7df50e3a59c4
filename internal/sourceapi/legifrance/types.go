package legifrance

// TextSummary is one entry of a code or statute listing.
type TextSummary struct {
	ID        string `json:"id"`
	CID       string `json:"cid"`
	Title     string `json:"titre"`
	TitleFull string `json:"titreLong"`
	Etat      string `json:"etat"`
}

type TextListPage struct {
	TotalNbResult int           `json:"totalNbResult"`
	Results       []TextSummary `json:"results"`
}

// ArticleStub is the shallow article record embedded in a consulted text's
// section tree. Content is HTML.
type ArticleStub struct {
	ID      string `json:"id"`
	Num     string `json:"num"`
	Content string `json:"content"`
}

// Section nodes nest arbitrarily deep; articles hang off every level.
type Section struct {
	Title    string        `json:"title"`
	Sections []Section     `json:"sections"`
	Articles []ArticleStub `json:"articles"`
}

// TextRoot is the body of a consulted code or statute. Dates are epoch
// milliseconds; a zero end date means still in force.
type TextRoot struct {
	ID        string        `json:"id"`
	CID       string        `json:"cid"`
	Title     string        `json:"titre"`
	TitleFull string        `json:"titreLong"`
	Etat      string        `json:"etat"`
	DateDebut int64         `json:"dateDebut"`
	DateFin   int64         `json:"dateFin"`
	Sections  []Section     `json:"sections"`
	Articles  []ArticleStub `json:"articles"`
}

// Article is the full article record returned by the article endpoint.
type Article struct {
	ID          string `json:"id"`
	Num         string `json:"num"`
	Texte       string `json:"texte"`
	Etat        string `json:"etat"`
	DateDebut   int64  `json:"dateDebut"`
	DateFin     int64  `json:"dateFin"`
	DateVersion string `json:"dateVersion"`
}

type listCodesRequest struct {
	PageSize   int      `json:"pageSize"`
	PageNumber int      `json:"pageNumber"`
	States     []string `json:"states"`
	Sort       string   `json:"sort"`
}

type listLawsRequest struct {
	Sort        string   `json:"sort"`
	LegalStatus []string `json:"legalStatus"`
	Natures     []string `json:"natures"`
	PageNumber  int      `json:"pageNumber"`
	PageSize    int      `json:"pageSize"`
}

type consultRequest struct {
	TextID string `json:"textId"`
	Date   string `json:"date"`
}

type consultResponse struct {
	Texte TextRoot `json:"texte"`
}

type getArticleRequest struct {
	ID string `json:"id"`
}

type getArticleResponse struct {
	Article Article `json:"article"`
}
