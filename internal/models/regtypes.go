package models

// DefaultRegulationTypes is the registry of regulation types crawled
// from the source site: code, listing path and formal Indonesian name.
func DefaultRegulationTypes() []RegulationType {
	return []RegulationType{
		{Code: "UU", SitePath: "uu", Name: "Undang-Undang"},
		{Code: "PP", SitePath: "pp", Name: "Peraturan Pemerintah"},
		{Code: "PERPRES", SitePath: "perpres", Name: "Peraturan Presiden"},
		{Code: "PERPPU", SitePath: "perppu", Name: "Peraturan Pemerintah Pengganti Undang-Undang"},
		{Code: "KEPPRES", SitePath: "keppres", Name: "Keputusan Presiden"},
		{Code: "INPRES", SitePath: "inpres", Name: "Instruksi Presiden"},
		{Code: "PENPRES", SitePath: "penpres", Name: "Penetapan Presiden"},
		{Code: "UUDRT", SitePath: "uudrt", Name: "Undang-Undang Darurat"},
		{Code: "TAP_MPR", SitePath: "tapmpr", Name: "Ketetapan Majelis Permusyawaratan Rakyat"},
		{Code: "PERMEN", SitePath: "permen", Name: "Peraturan Menteri"},
		{Code: "PERBAN", SitePath: "perban", Name: "Peraturan Badan/Lembaga"},
		{Code: "PERDA", SitePath: "perda", Name: "Peraturan Daerah"},
	}
}

// RegulationTypeName returns the formal name for a type code, or the
// code itself when unknown
func RegulationTypeName(code string) string {
	for _, rt := range DefaultRegulationTypes() {
		if rt.Code == code {
			return rt.Name
		}
	}
	return code
}
