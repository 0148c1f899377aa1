package check

import "github.com/rdaptools/rdap/internal/response"

// icannRules cover §4.6's IcannExtensionError class: "ICANN-profile-
// specific contact-redaction rules, expected publicIds, required notices".
// Attached only when ctx.ProfileGroup requests an ICANN profile, per §4.6
// context "expected profile group (gtld|nro|nro-asn)".
var icannRules = []Rule{ruleDomainPublicIDsExpected, ruleEntityRedactionExpected}

func init() {
	domainRules = append(domainRules, icannScopedDomainRules...)
	entityRules = append(entityRules, icannScopedEntityRules...)
}

var icannScopedDomainRules = []Rule{ruleDomainPublicIDsExpected}
var icannScopedEntityRules = []Rule{ruleEntityRedactionExpected}

// ruleDomainPublicIDsExpected: the gTLD profile requires a publicIds entry
// identifying the domain's IANA registrar id (ICANN RDAP profile §1.5.9).
func ruleDomainPublicIDsExpected(n Node, ctx Context) []Finding {
	if ctx.ProfileGroup != ProfileGTLD {
		return nil
	}
	d, ok := n.Obj.(response.Domain)
	if !ok {
		return nil
	}
	for _, p := range d.PublicIDs {
		if p.Type == "IANA Registrar ID" {
			return nil
		}
	}
	return []Finding{{
		Code: 8001, Class: IcannExtensionError, Path: n.Path + ".publicIds",
		Message: "gTLD profile requires a publicIds entry of type \"IANA Registrar ID\"",
	}}
}

// ruleEntityRedactionExpected: the gTLD profile requires registrant contact
// fields to be either present or explicitly redacted (RFC 9537) rather than
// silently absent (ICANN RDAP profile §2.2 "Registration Data Directory
// Services").
func ruleEntityRedactionExpected(n Node, ctx Context) []Finding {
	if ctx.ProfileGroup != ProfileGTLD {
		return nil
	}
	e, ok := n.Obj.(response.Entity)
	if !ok {
		return nil
	}
	isRegistrant := false
	for _, r := range e.Roles {
		if r == "registrant" {
			isRegistrant = true
		}
	}
	if !isRegistrant {
		return nil
	}
	if len(e.VCard) > 0 {
		return nil
	}
	redacted, ok := n.Root.(response.Domain)
	if ok && len(redacted.Redacted) > 0 {
		return nil
	}
	return []Finding{{
		Code: 8002, Class: IcannExtensionError, Path: n.Path,
		Message: "registrant entity has no vcard and no redacted[] directive explaining its absence",
	}}
}
