package extract

// extractionPrompt asks the provider for one JSON object keyed by the field
// catalog keys.
const extractionPrompt = `Analise este documento de identificação brasileiro e extraia TODOS os dados disponíveis.

IMPORTANTE:
- Extraia TODOS os campos visíveis no documento
- Use formatação brasileira para datas (DD/MM/AAAA)
- Mantenha CPF e RG com a formatação original
- Se um campo não existir no documento, use null

Responda APENAS com JSON válido no seguinte formato:

{
  "tipoDocumento": "tipo do documento (RG, CNH, CPF, etc)",
  "nome": "nome completo",
  "nomeDaMae": "nome da mãe",
  "nomeDoPai": "nome do pai",
  "cpf": "CPF com formatação (000.000.000-00)",
  "rg": "RG com formatação",
  "orgaoExpedidor": "órgão expedidor/UF",
  "dataExpedicao": "DD/MM/AAAA",
  "dataVencimento": "DD/MM/AAAA",
  "dataNascimento": "DD/MM/AAAA",
  "naturalidade": "cidade de nascimento",
  "uf": "estado (sigla)",
  "nacionalidade": "nacionalidade",
  "estadoCivil": "estado civil",
  "endereco": "endereço completo",
  "cep": "CEP com formatação (00000-000)",
  "numeroDocumento": "número do documento",
  "categoria": "categoria CNH (se aplicável)",
  "numeroRegistro": "número de registro (CNH)",
  "validade": "validade da CNH",
  "primeiraHabilitacao": "data primeira habilitação",
  "observacoes": "observações do documento",
  "outrosDados": "outros dados relevantes"
}

Retorne APENAS o JSON, sem explicações ou formatação markdown.`

// Prompt returns the fixed extraction prompt.
func Prompt() string {
	return extractionPrompt
}
