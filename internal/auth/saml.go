package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"encoding/xml"
	"net/url"
	"os"
	"time"

	"github.com/beevik/etree"
	"github.com/crewjam/saml"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/evaka-go/apigw/internal/config"
	"github.com/evaka-go/apigw/internal/replay"
)

// SAMLProvider terminates one SAML integration: it builds the signed
// authentication request, validates the returned response against the
// IdP signing certificate and guards the response id against replay.
// The assertion contents come back as a raw attribute bag for the
// verifier pipeline.
type SAMLProvider struct {
	sp        *saml.ServiceProvider
	replay    replay.Store
	replayTTL time.Duration
	keyPrefix string

	// parse validates a decoded response document and returns its
	// assertion. Swappable so the replay and attribute paths can be
	// tested without a signing IdP.
	parse func(responseXML []byte, possibleRequestIDs []string) (*saml.Assertion, error)
}

// NewSAMLProvider assembles the service provider from its
// configuration. Certificate or key material that is missing or
// malformed is a startup error, never a runtime surprise.
func NewSAMLProvider(cfg *config.SAMLAuth, keyPrefix string, store replay.Store, replayTTL time.Duration) (*SAMLProvider, error) {
	idpCert, err := loadCertificate(cfg.IDPCertFile)
	if err != nil {
		return nil, errors.Wrap(err, "loading IdP certificate")
	}

	spCert, err := loadCertificate(cfg.SPCertFile)
	if err != nil {
		return nil, errors.Wrap(err, "loading SP certificate")
	}

	spKey, err := loadPrivateKey(cfg.SPKeyFile)
	if err != nil {
		return nil, errors.Wrap(err, "loading SP private key")
	}

	acsURL, err := url.Parse(cfg.CallbackURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing callback URL")
	}

	metadataURL, err := url.Parse(cfg.EntityID)
	if err != nil {
		metadataURL = acsURL
	}

	// Assertion validity windows are taken at face value. The gateway
	// and the IdP run on synchronized clocks, so no skew is tolerated.
	saml.MaxClockSkew = 0

	p := &SAMLProvider{
		sp: &saml.ServiceProvider{
			EntityID:          cfg.EntityID,
			Key:               spKey,
			Certificate:       spCert,
			AcsURL:            *acsURL,
			MetadataURL:       *metadataURL,
			IDPMetadata:       idpDescriptor(cfg, idpCert),
			SignatureMethod:   "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256",
			AuthnNameIDFormat: saml.TransientNameIDFormat,
			AllowIDPInitiated: true,
		},
		replay:    store,
		replayTTL: replayTTL,
		keyPrefix: keyPrefix,
	}

	p.parse = func(responseXML []byte, possibleRequestIDs []string) (*saml.Assertion, error) {
		return p.sp.ParseXMLResponse(responseXML, possibleRequestIDs, p.sp.AcsURL)
	}

	log.Debug().Str("entityID", cfg.EntityID).Str("acs", cfg.CallbackURL).Msg("SAML service provider configured")

	return p, nil
}

// LoginURL builds the IdP redirect for a fresh authentication request.
func (p *SAMLProvider) LoginURL(relayState string) (string, error) {
	ssoURL := p.sp.GetSSOBindingLocation(saml.HTTPRedirectBinding)

	authnRequest, err := p.sp.MakeAuthenticationRequest(ssoURL, saml.HTTPRedirectBinding, saml.HTTPPostBinding)
	if err != nil {
		return "", errors.Wrap(err, "building authentication request")
	}

	redirectURL, err := authnRequest.Redirect(relayState, p.sp)
	if err != nil {
		return "", errors.Wrap(err, "signing redirect URL")
	}

	return redirectURL.String(), nil
}

// ConsumeResponse validates a base64 encoded SAML response and burns
// its response id. A response whose id was consumed before fails with
// ErrReplayDetected no matter how valid its signature still is.
func (p *SAMLProvider) ConsumeResponse(encodedResponse string) (Attributes, error) {
	responseXML, err := base64.StdEncoding.DecodeString(encodedResponse)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidAssertion, "decoding response: %v", err)
	}

	responseID, err := responseID(responseXML)
	if err != nil {
		return nil, err
	}

	assertion, err := p.parse(responseXML, nil)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidAssertion, "validating response: %v", err)
	}

	// Replay is checked only after the response proved authentic, so
	// an attacker cannot burn ids with forged documents.
	if err := p.replay.Consume(replay.Key(p.keyPrefix, responseID), p.replayTTL); err != nil {
		if errors.Is(err, replay.ErrAlreadySeen) {
			log.Warn().Str("responseID", responseID).Str("integration", p.keyPrefix).Msg("SAML response replay rejected")

			return nil, errors.Wrapf(ErrReplayDetected, "response id %q", responseID)
		}

		return nil, errors.Wrap(err, "consulting replay cache")
	}

	return assertionAttributes(assertion), nil
}

// Metadata renders the SP metadata document served to the IdP.
func (p *SAMLProvider) Metadata() ([]byte, error) {
	out, err := xml.MarshalIndent(p.sp.Metadata(), "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "rendering SP metadata")
	}

	return append([]byte(xml.Header), out...), nil
}

// responseID reads the document-level response id, which is the replay
// key. A response without one is malformed and rejected outright.
func responseID(responseXML []byte) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(responseXML); err != nil {
		return "", errors.Wrapf(ErrInvalidAssertion, "parsing response document: %v", err)
	}

	root := doc.Root()
	if root == nil {
		return "", errors.Wrap(ErrInvalidAssertion, "empty response document")
	}

	id := root.SelectAttrValue("ID", "")
	if id == "" {
		return "", errors.Wrap(ErrInvalidAssertion, "response carries no id")
	}

	return id, nil
}

// assertionAttributes flattens the assertion attribute statements into
// the raw attribute bag the normalizers consume.
func assertionAttributes(assertion *saml.Assertion) Attributes {
	attrs := Attributes{}

	for _, statement := range assertion.AttributeStatements {
		for _, attr := range statement.Attributes {
			name := attr.Name
			if name == "" {
				name = attr.FriendlyName
			}

			for _, value := range attr.Values {
				attrs[name] = append(attrs[name], value.Value)
			}
		}
	}

	return attrs
}

// idpDescriptor builds the IdP metadata descriptor from the static
// configuration instead of a metadata fetch, so the gateway starts
// without network access to the IdP.
func idpDescriptor(cfg *config.SAMLAuth, idpCert *x509.Certificate) *saml.EntityDescriptor {
	certData := base64.StdEncoding.EncodeToString(idpCert.Raw)

	return &saml.EntityDescriptor{
		EntityID: cfg.IDPEntityID,
		IDPSSODescriptors: []saml.IDPSSODescriptor{
			{
				SSODescriptor: saml.SSODescriptor{
					RoleDescriptor: saml.RoleDescriptor{
						ProtocolSupportEnumeration: "urn:oasis:names:tc:SAML:2.0:protocol",
						KeyDescriptors: []saml.KeyDescriptor{
							{
								Use: "signing",
								KeyInfo: saml.KeyInfo{
									X509Data: saml.X509Data{
										X509Certificates: []saml.X509Certificate{
											{Data: certData},
										},
									},
								},
							},
						},
					},
				},
				SingleSignOnServices: []saml.Endpoint{
					{Binding: saml.HTTPRedirectBinding, Location: cfg.EntryPoint},
					{Binding: saml.HTTPPostBinding, Location: cfg.EntryPoint},
				},
			},
		},
	}
}

func loadCertificate(path string) (*x509.Certificate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.Errorf("no PEM block in %s", path)
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing certificate %s", path)
	}

	return cert, nil
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.Errorf("no PEM block in %s", path)
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing private key %s", path)
	}

	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.Errorf("private key %s is not an RSA key", path)
	}

	return key, nil
}
