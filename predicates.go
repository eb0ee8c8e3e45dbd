package bluequery

import "strings"

// AjaxActionPrefix marks actions performed through asynchronous calls.
const AjaxActionPrefix = "ajax_"

// Display types and page categories read from the distinguished parameters.
const (
	DisplayXML = "xml"
	DisplayCSV = "csv"
	DisplayTSV = "tsv"

	PageAbout         = "about"
	PageAdmin         = "admin"
	PageAnatomy       = "anatomy"
	PageDocumentation = "documentation"
	PageDownload      = "download"
	PageExpression    = "expression"
	PageGene          = "gene"
	PageGeneFamily    = "gene_family"
	PageLog           = "log"
	PageNews          = "news"
	PageRegistration  = "registration"
	PageSearch        = "search"
	PageTopAnat       = "top_anat"
)

func (p *Parameters) first(d *Definition) (string, bool) {
	if d == nil {
		return "", false
	}
	return p.GetFirstValue(d)
}

// DisplayType returns the requested display type, or "".
func (p *Parameters) DisplayType() string {
	v, _ := p.first(p.reg.DisplayType())
	return v
}

func (p *Parameters) IsXMLDisplayType() bool { return p.DisplayType() == DisplayXML }
func (p *Parameters) IsCSVDisplayType() bool { return p.DisplayType() == DisplayCSV }
func (p *Parameters) IsTSVDisplayType() bool { return p.DisplayType() == DisplayTSV }

// IsAjaxRequest reports whether the action starts with AjaxActionPrefix,
// ignoring case.
func (p *Parameters) IsAjaxRequest() bool {
	v, ok := p.first(p.reg.Action())
	return ok && strings.HasPrefix(strings.ToLower(v), AjaxActionPrefix)
}

// IsPage reports whether the page parameter equals category.
func (p *Parameters) IsPage(category string) bool {
	v, ok := p.first(p.reg.Page())
	return ok && v == category
}

// IsHomePage is true when no page is requested or the page is "about".
func (p *Parameters) IsHomePage() bool {
	v, ok := p.first(p.reg.Page())
	return !ok || v == PageAbout
}

// IsSecuredPage reports pages that carry sensitive information and must not
// be cached or have their URL stored.
func (p *Parameters) IsSecuredPage() bool {
	return p.IsPage(PageLog) || p.IsPage(PageRegistration)
}
